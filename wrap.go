package heartbeat

import (
	"context"
	"fmt"
	"maps"
	"net"
	"slices"
	"strings"
)

// Dialer opens a connection. Layers compose by wrapping one Dialer in another.
type Dialer = func(ctx context.Context) (net.Conn, error)

// PipeType represents the type flowing through the wrapper pipeline.
type PipeType int

const (
	PipeTypeListener PipeType = iota // net.Listener
	PipeTypeDialer                   // Dialer
	PipeTypeConn                     // net.Conn
)

func (p PipeType) String() string {
	switch p {
	case PipeTypeListener:
		return "Listener"
	case PipeTypeDialer:
		return "Dialer"
	case PipeTypeConn:
		return "Conn"
	default:
		return "Unknown"
	}
}

type Wrappers []Wrapper

func (ws Wrappers) Apply(v any) (any, error) {
	var err error
	for _, w := range ws {
		v, err = w.Apply(v)
		if err != nil {
			return nil, fmt.Errorf("wrap %q: %w", w.String(), err)
		}
	}
	return v, nil
}

// WrapDialer runs d through every wrapper of the chain.
func (ws Wrappers) WrapDialer(d Dialer) (Dialer, error) {
	v, err := ws.Apply(d)
	if err != nil {
		return nil, err
	}
	out, ok := v.(Dialer)
	if !ok {
		return nil, fmt.Errorf("wrapper chain %q does not produce a dialer", ws.String())
	}
	return out, nil
}

// WrapListener runs ln through every wrapper of the chain.
func (ws Wrappers) WrapListener(ln net.Listener) (net.Listener, error) {
	v, err := ws.Apply(ln)
	if err != nil {
		return nil, err
	}
	out, ok := v.(net.Listener)
	if !ok {
		return nil, fmt.Errorf("wrapper chain %q does not produce a listener", ws.String())
	}
	return out, nil
}

func (ws Wrappers) String() string {
	strs := make([]string, len(ws))
	for i, w := range ws {
		strs[i] = w.String()
	}
	return strings.Join(strs, "+")
}

func (ws Wrappers) MarshalText() ([]byte, error) {
	return []byte(ws.String()), nil
}

func (ws *Wrappers) UnmarshalText(text []byte, listener bool) error {
	parts := strings.Split(string(text), "+")
	*ws = make([]Wrapper, len(parts))
	for i := range parts {
		if err := (*ws)[i].UnmarshalText([]byte(parts[i]), listener); err != nil {
			return err
		}
	}

	currentType := PipeTypeDialer
	if listener {
		currentType = PipeTypeListener
	}
	for i, w := range *ws {
		outputType, ok := w.OutputFor(currentType)
		if !ok {
			return fmt.Errorf("wrapper %q at position %d: incompatible input type %s, expected one of %v", w.String(), i, currentType.String(), w.InputTypes())
		}
		currentType = outputType
	}

	if listener && currentType != PipeTypeListener {
		return fmt.Errorf("invalid wrapper chain: final output type %s is not a Listener for a listener URI", currentType.String())
	}
	if !listener && currentType != PipeTypeDialer {
		return fmt.Errorf("invalid wrapper chain: final output type %s is not a Dialer for a dialer URI", currentType.String())
	}
	return nil
}

// Wrapper represents a transformation in the layer pipeline.
// At most one function field per input type should be set.
type Wrapper struct {
	Name     string
	Params   map[string]string
	Listener bool

	ListenerToListener func(net.Listener) (net.Listener, error)
	DialerToDialer     func(Dialer) (Dialer, error)
	ConnToConn         func(net.Conn) (net.Conn, error)
}

func (w Wrapper) InputTypes() []PipeType {
	var types []PipeType
	if w.ListenerToListener != nil {
		types = append(types, PipeTypeListener)
	}
	if w.DialerToDialer != nil {
		types = append(types, PipeTypeDialer)
	}
	if w.ConnToConn != nil {
		types = append(types, PipeTypeConn)
	}
	return types
}

// OutputFor returns the output PipeType when this wrapper receives the given input type.
func (w Wrapper) OutputFor(input PipeType) (PipeType, bool) {
	switch {
	case input == PipeTypeListener && w.ListenerToListener != nil:
		return PipeTypeListener, true
	case input == PipeTypeDialer && w.DialerToDialer != nil:
		return PipeTypeDialer, true
	case input == PipeTypeConn && w.ConnToConn != nil:
		return PipeTypeConn, true
	}
	return 0, false
}

// Apply transforms the pipeline value through this wrapper.
func (w Wrapper) Apply(v any) (any, error) {
	switch v := v.(type) {
	case net.Listener:
		if w.ListenerToListener != nil {
			return w.ListenerToListener(v)
		}
	case Dialer:
		if w.DialerToDialer != nil {
			return w.DialerToDialer(v)
		}
	case net.Conn:
		if w.ConnToConn != nil {
			return w.ConnToConn(v)
		}
	}
	return nil, fmt.Errorf("wrapper %q: incompatible type %T", w.Name, v)
}

func (w Wrapper) String() string {
	return formatParams(w.Name, w.Params)
}

func (w Wrapper) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *Wrapper) UnmarshalText(text []byte, listener bool) error {
	name, params, err := parseParams(string(text))
	if err != nil {
		return err
	}
	driver, err := GetDriver(name)
	if err != nil {
		return err
	}
	*w, err = driver(params, listener)
	if err != nil {
		return fmt.Errorf("uri: setup driver %s: %w", name, err)
	}
	return nil
}

// parseParams splits "name{k=v,...}" into its lower-cased name and parameters.
func parseParams(str string) (string, map[string]string, error) {
	name := strings.ToLower(strings.TrimSpace(str))
	params := map[string]string{}
	if idx := strings.Index(str, "{"); idx != -1 {
		if !strings.HasSuffix(str, "}") {
			return "", nil, fmt.Errorf("uri: missing '}' in %q", str)
		}
		name = strings.ToLower(strings.TrimSpace(str[:idx]))
		for pair := range strings.SplitSeq(str[idx+1:len(str)-1], ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				return "", nil, fmt.Errorf("uri: invalid parameter %q", pair)
			}
			key := strings.ToLower(strings.TrimSpace(kv[0]))
			if key == "" {
				return "", nil, fmt.Errorf("uri: empty parameter key")
			}
			params[key] = strings.TrimSpace(kv[1])
		}
	}
	if name == "" {
		return "", nil, fmt.Errorf("uri: empty name in %q", str)
	}
	return name, params, nil
}

func formatParams(name string, params map[string]string) string {
	if len(params) == 0 {
		return name
	}
	keys := slices.Sorted(maps.Keys(params))
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	return fmt.Sprintf("%s{%s}", name, strings.Join(pairs, ","))
}

type connWrappedListener struct {
	net.Listener
	wrapConn func(net.Conn) (net.Conn, error)
}

func (l *connWrappedListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	wc, err := l.wrapConn(c)
	if err != nil {
		c.Close()
		return nil, err
	}
	return wc, nil
}

// ConnWrapListener adapts a ConnToConn wrapper to a ListenerToListener wrapper.
func ConnWrapListener(ln net.Listener, wrapConn func(net.Conn) (net.Conn, error)) (net.Listener, error) {
	return &connWrappedListener{ln, wrapConn}, nil
}

// ConnWrapDialer adapts a ConnToConn wrapper to a DialerToDialer wrapper.
func ConnWrapDialer(dial Dialer, wrapConn func(net.Conn) (net.Conn, error)) (Dialer, error) {
	return func(ctx context.Context) (net.Conn, error) {
		c, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		wc, err := wrapConn(c)
		if err != nil {
			c.Close()
			return nil, err
		}
		return wc, nil
	}, nil
}

// ConnWrapper builds a Wrapper that applies wrapConn in every pipeline position.
func ConnWrapper(name string, params map[string]string, listener bool, wrapConn func(net.Conn) (net.Conn, error)) Wrapper {
	return Wrapper{
		Name:     name,
		Params:   params,
		Listener: listener,
		ListenerToListener: func(l net.Listener) (net.Listener, error) {
			return ConnWrapListener(l, wrapConn)
		},
		DialerToDialer: func(d Dialer) (Dialer, error) {
			return ConnWrapDialer(d, wrapConn)
		},
		ConnToConn: wrapConn,
	}
}
