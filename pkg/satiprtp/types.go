// Package satiprtp implements the RTP/RTCP streaming core of a SAT>IP
// server: PID filtering, RTP packetization, batched UDP send and periodic
// RTCP reporting for live tuner sessions.
package satiprtp

import "sort"

// MessageKind tags a message on a session's input queue.
type MessageKind int

const (
	MsgMPEGTS MessageKind = iota
	MsgSignalStatus
	MsgNoStart
	MsgExit
	MsgStart
	MsgStop
	MsgPacket
	MsgGrace
	MsgSkip
	MsgSpeed
	MsgServiceStatus
	MsgTimeshiftStatus
)

// Message is one entry on a session's streaming queue.
type Message struct {
	Kind    MessageKind
	Payload []byte        // valid for MsgMPEGTS: a run of 188-byte TS packets
	Signal  *SignalStatus // valid for MsgSignalStatus
}

// Scale describes the unit a signal/SNR reading is expressed in.
type Scale int

const (
	ScaleUnknown Scale = iota
	ScaleRelative
	ScaleDecibel
)

// SignalStatus is the most recent signal/SNR reading reported by the tuner.
type SignalStatus struct {
	Signal      uint32
	SignalScale Scale
	SNR         uint32
	SNRScale    Scale
}

// DeliverySystem names the DVB variant a mux is tuned to.
type DeliverySystem int

const (
	SysUnknown DeliverySystem = iota
	SysDVBS
	SysDVBS2
	SysDVBT
	SysDVBT2
	SysDVBCAnnexA
	SysDVBCAnnexC
)

// Modulation names the constellation a mux uses.
type Modulation int

const (
	ModUnknown Modulation = iota
	ModQPSK
	ModPSK8
	ModQAM16
	ModQAM32
	ModQAM64
	ModQAM128
)

// Polarization names a DVB-S/S2 LNB polarization.
type Polarization int

const (
	PolNone Polarization = iota
	PolHorizontal
	PolVertical
	PolCircularLeft
	PolCircularRight
)

// Pilot is the DVB-S2 pilot-symbol setting.
type Pilot int

const (
	PilotUnset Pilot = iota
	PilotOn
	PilotOff
)

// Rolloff is the DVB-S2 roll-off factor.
type Rolloff int

const (
	RolloffUnset Rolloff = iota
	Rolloff20
	Rolloff25
	Rolloff35
)

// Bandwidth is a DVB-T/T2 channel bandwidth.
type Bandwidth int

const (
	BWUnset Bandwidth = iota
	BW1712KHz
	BW5MHz
	BW6MHz
	BW7MHz
	BW8MHz
	BW10MHz
)

// TransmissionMode is a DVB-T/T2 FFT size.
type TransmissionMode int

const (
	TModeUnset TransmissionMode = iota
	TMode1K
	TMode2K
	TMode4K
	TMode8K
	TMode16K
	TMode32K
)

// GuardInterval is a DVB-T/T2 guard interval fraction.
type GuardInterval int

const (
	GIUnset GuardInterval = iota
	GI1_4
	GI1_8
	GI1_16
	GI1_32
	GI1_128
	GI19_128
	GI19_256
)

// FEC is a forward-error-correction code rate, rendered by fecString.
type FEC int

const (
	FECNone FEC = iota
	FECAuto
	FEC1_2
	FEC2_3
	FEC3_4
	FEC3_5
	FEC4_5
	FEC5_6
	FEC6_7
	FEC7_8
	FEC8_9
	FEC9_10
)

// MuxConfig is a frozen snapshot of tuner configuration, used only to
// format RTCP reports. It is immutable after session creation and may be
// read lock-free by the RTCP reporter.
type MuxConfig struct {
	DeliverySystem DeliverySystem
	FrequencyHz    uint64
	Modulation     Modulation

	// DVB-S/S2
	Polarization Polarization
	Pilot        Pilot
	Rolloff      Rolloff
	SymbolRateHz uint32
	FECInner     FEC

	// DVB-T/T2
	Bandwidth        Bandwidth
	TransmissionMode TransmissionMode
	GuardInterval    GuardInterval
	CodeRateHP       FEC
	PLP              int
	T2SystemID       int
	SISOMISO         int

	// DVB-C/C2
	C2TFT     int
	DataSlice int
	SpecInv   int
}

// PIDFilter is a session's live PID admission set: either "all PIDs" or a
// sorted, deduplicated ascending list of 13-bit PIDs.
type PIDFilter struct {
	All  bool
	PIDs []uint16
}

// pidMask keeps a PID to its wire width: byte 1 contributes 5 bits, byte 2
// contributes 8, for 13 bits total (0..0x1FFF).
const pidMask = 0x1fff

// NewPIDFilter builds a sorted, deduplicated filter from an arbitrary PID
// list. all takes precedence over pids. Each PID is masked to 13 bits, the
// width actually carried on the wire, so a control-layer caller can't hand
// in a value the packer could never match against an extracted TS PID.
func NewPIDFilter(all bool, pids []uint16) PIDFilter {
	if all {
		return PIDFilter{All: true}
	}
	return PIDFilter{PIDs: sortDedup(pids)}
}

func sortDedup(pids []uint16) []uint16 {
	out := make([]uint16, len(pids))
	for i, p := range pids {
		out[i] = p & pidMask
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	deduped := out[:0]
	var last uint16
	haveLast := false
	for _, p := range out {
		if haveLast && p == last {
			continue
		}
		deduped = append(deduped, p)
		last, haveLast = p, true
	}
	return deduped
}

// Accept reports whether pid passes the filter. The sorted-list scan
// early-exits as soon as a list value exceeds pid, relying on sort order.
func (f PIDFilter) Accept(pid uint16) bool {
	if f.All {
		return true
	}
	for _, p := range f.PIDs {
		if p == pid {
			return true
		}
		if p > pid {
			return false
		}
	}
	return false
}
