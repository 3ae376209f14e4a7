package xbee

// frame.go assembles the conditionally-present fields of one outbound
// API-mode request into an unescaped payload, leaving escaping and
// checksumming to the pure functions in codec.go.

// apiRequest enumerates the conditionally-present fields of one outbound
// API-mode request as named, optional (-1 sentinel for "absent") fields
// instead of a long positional parameter list.
type apiRequest struct {
	apiType     byte
	txSeq       int // API sequence byte, or -1
	apiOption   int // RX options, or -1
	address     []byte
	prePayload1 int // e.g. broadcast radius, or -1
	prePayload2 int // e.g. transmit options, or -1
	data        []byte
}

// newAPIRequest returns an apiRequest with every optional field set to
// its "absent" sentinel, ready for the caller to override only the
// fields this particular frame type carries.
func newAPIRequest(apiType byte) apiRequest {
	return apiRequest{
		apiType:     apiType,
		txSeq:       -1,
		apiOption:   -1,
		prePayload1: -1,
		prePayload2: -1,
	}
}

// buildAPIPayload assembles the unescaped frame payload (everything that
// will be length-prefixed and checksummed) for one apiRequest. It does
// not apply routing: whether a Create Source Route frame needs to precede
// this one is decided by the caller's send path, not here.
func buildAPIPayload(r apiRequest) []byte {
	payload := make([]byte, 0, 32+len(r.data))
	payload = append(payload, r.apiType)

	if r.apiOption >= 0 {
		payload = append(payload, byte(r.apiOption))
	}
	if r.txSeq >= 0 {
		payload = append(payload, byte(r.txSeq))
	}
	if r.apiType != apiTypeLocalATRequest {
		payload = append(payload, r.address...)
	}
	if r.prePayload1 >= 0 {
		payload = append(payload, byte(r.prePayload1))
	}
	if r.prePayload2 >= 0 {
		payload = append(payload, byte(r.prePayload2))
	}
	payload = append(payload, r.data...)
	return payload
}

// API frame type constants.
const (
	apiTypeLocalATRequest    = 0x08
	apiTypeLocalATResponse   = 0x88
	apiTypeRemoteATRequest   = 0x17
	apiTypeRemoteATResponse  = 0x97
	apiTypeTransmitStatus    = 0x8B
	apiTypeRouteRecord       = 0xA1
	apiTypeTransmitRequest   = 0x10 // ZigBee Transmit Request: gateway-mode outbound, direct-mode inbound
	apiTypeReceivePacket     = 0x90 // ZigBee Receive Packet: gateway-mode inbound, direct-mode outbound
	apiTypeCreateSourceRoute = 0x21

	remoteATApplyChanges = 0x02
)

// Application packet types carried inside the transport's payload.
const (
	packetTypeAck     = 0
	packetTypeRequest = 1

	appTypeFirmwareDeliver = 23
	appTypeFirmwareReply   = 24
)
