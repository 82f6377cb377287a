package adapter

import (
	"fmt"
	"strconv"

	"ringaudit/internal/domain"
)

// Response field names used by Information.Info
const (
	fieldNeighbors = "neighbors"
	fieldSelf      = "self"
	fieldRight     = "right"
	fieldLeft      = "left"
	fieldRight2    = "right2"
	fieldLeft2     = "left2"
	fieldLocalIPs  = "localips"
	fieldGeoLoc    = "geo_loc"
	fieldType      = "type"
	fieldVirtualIP = "Virtual IP"
	fieldNamespace = "IpopNamespace"
)

// ParseNeighborInfo converts a decoded Information.Info struct
func ParseNeighborInfo(res map[string]any) (*domain.NeighborInfo, error) {
	neighbors, ok := res[fieldNeighbors].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: no %s struct", ErrMalformedResponse, fieldNeighbors)
	}

	info := &domain.NeighborInfo{}
	var err error

	// Required
	if info.Self, err = requiredAddress(neighbors, fieldSelf); err != nil {
		return nil, err
	}
	if info.Right, err = requiredAddress(neighbors, fieldRight); err != nil {
		return nil, err
	}
	if info.Left, err = requiredAddress(neighbors, fieldLeft); err != nil {
		return nil, err
	}

	// Optional
	if info.Right2, err = optionalAddress(neighbors, fieldRight2); err != nil {
		return nil, err
	}
	if info.Left2, err = optionalAddress(neighbors, fieldLeft2); err != nil {
		return nil, err
	}

	info.LocalIPs = stringList(res[fieldLocalIPs])
	info.GeoLocation = stringField(res, fieldGeoLoc)
	info.Type = stringField(res, fieldType)
	if info.Type == domain.NodeTypeTunneling {
		info.VirtualIP = stringField(res, fieldVirtualIP)
		info.Namespace = stringField(res, fieldNamespace)
	}

	info.Cons = intField(res, "cons")
	info.TCP = intField(res, "tcp")
	info.Tunnel = intField(res, "tunnel")
	info.UDP = intField(res, "udp")
	info.WeakEdges = intField(res, "wedges")
	info.StrongEdges = intField(res, "sas")

	return info, nil
}

// parseSelf extracts the self address from a sys:link.GetNeighbors struct
func parseSelf(res map[string]any) (domain.Address, error) {
	return requiredAddress(res, fieldSelf)
}

func requiredAddress(m map[string]any, key string) (domain.Address, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return domain.Address{}, fmt.Errorf("%w: missing %s", ErrMalformedResponse, key)
	}
	addr, err := domain.ParseAddress(s)
	if err != nil {
		return domain.Address{}, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, key, err)
	}
	return addr, nil
}

func optionalAddress(m map[string]any, key string) (domain.Address, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return domain.Address{}, nil
	}
	addr, err := domain.ParseAddress(s)
	if err != nil {
		return domain.Address{}, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, key, err)
	}
	return addr, nil
}

// stringField safely extracts a string field from a map
func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// stringList accepts an XML-RPC array of strings
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// intField reads a non-negative counter, defaulting to 0
func intField(m map[string]any, key string) int {
	var n int
	switch v := m[key].(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		n = parsed
	}
	if n < 0 {
		return 0
	}
	return n
}
