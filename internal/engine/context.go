package engine

// RequestContext carries the attributes of one HTTP request, as parsed
// by the data-plane collaborator. The engine reads it; it never mutates
// it.
type RequestContext struct {
	URI          string            `json:"uri"`
	Scheme       string            `json:"scheme,omitempty"`
	Method       string            `json:"method"`
	Authority    string            `json:"authority"`
	Headers      map[string]string `json:"headers,omitempty"`
	Port         uint32            `json:"port,omitempty"`
	PortName     string            `json:"portName,omitempty"`
	SourceLabels map[string]string `json:"sourceLabels,omitempty"`
	Gateways     []string          `json:"gateways,omitempty"`
}

// ConnectionContext carries the attributes of one TCP connection.
type ConnectionContext struct {
	DestinationAddr string            `json:"destinationAddr"`
	DestinationHost string            `json:"destinationHost"`
	SourceAddr      string            `json:"sourceAddr,omitempty"`
	Port            uint32            `json:"port,omitempty"`
	PortName        string            `json:"portName,omitempty"`
	SourceLabels    map[string]string `json:"sourceLabels,omitempty"`
	Gateways        []string          `json:"gateways,omitempty"`
}
