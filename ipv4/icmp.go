package ipv4

import netsim "github.com/dfg-98/netsim"

// ProtocolICMP marks a packet whose payload is an ICMP-like code.
const ProtocolICMP = 1

// ICMP-like payload codes.
const (
	ICMPEchoReply    = 0
	ICMPUnreachable  = 3
	ICMPEchoRequest  = 8
	ICMPTimeExceeded = 11
)

var icmpMessages = map[int]string{
	ICMPEchoReply:    "echo reply",
	ICMPUnreachable:  "destination host unreachable",
	ICMPEchoRequest:  "echo request",
	ICMPTimeExceeded: "time exceeded",
}

// ICMPMessage returns the human readable message for a payload code.
func ICMPMessage(code int) string {
	if msg, ok := icmpMessages[code]; ok {
		return msg
	}
	return "Unknown payload number"
}

func icmpPacket(dst, src Addr, code int) Packet {
	return BuildPacket(dst, src, netsim.IntToBits(code, 8), 0, ProtocolICMP)
}

// EchoRequest builds a ping packet.
func EchoRequest(dst, src Addr) Packet { return icmpPacket(dst, src, ICMPEchoRequest) }

// EchoReply builds a ping response packet.
func EchoReply(dst, src Addr) Packet { return icmpPacket(dst, src, ICMPEchoReply) }

// Unreachable builds a destination-host-unreachable packet.
func Unreachable(dst, src Addr) Packet { return icmpPacket(dst, src, ICMPUnreachable) }
