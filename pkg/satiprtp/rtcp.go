package satiprtp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	rtcpPayload   = 1420
	rtcpAppType   = 204
	rtcpMaxBody   = rtcpPayload - 16
)

// fecString renders a FEC code rate the way the wire format expects:
// "3/4" becomes "34". AUTO and NONE render as the empty string. Unlike
// the source this is grounded on, the rewrite is bounds-checked rather
// than overrunning past a missing '/'.
func fecString(f FEC) string {
	name, ok := fecNames[f]
	if !ok || f == FECAuto || f == FECNone {
		return ""
	}
	return strings.Replace(name, "/", "", 1)
}

var fecNames = map[FEC]string{
	FEC1_2:  "1/2",
	FEC2_3:  "2/3",
	FEC3_4:  "3/4",
	FEC3_5:  "3/5",
	FEC4_5:  "4/5",
	FEC5_6:  "5/6",
	FEC6_7:  "6/7",
	FEC7_8:  "7/8",
	FEC8_9:  "8/9",
	FEC9_10: "9/10",
}

func polarizationString(p Polarization) string {
	switch p {
	case PolHorizontal:
		return "H"
	case PolVertical:
		return "V"
	case PolCircularLeft:
		return "L"
	case PolCircularRight:
		return "R"
	default:
		return ""
	}
}

func modulationDVBSString(m Modulation) string {
	switch m {
	case ModQPSK:
		return "qpsk"
	case ModPSK8:
		return "8psk"
	default:
		return ""
	}
}

func modulationQAMString(m Modulation) string {
	switch m {
	case ModQAM16:
		return "qam16"
	case ModQAM32:
		return "qam32"
	case ModQAM64:
		return "qam64"
	case ModQAM128:
		return "qam128"
	default:
		return ""
	}
}

func pilotString(p Pilot) string {
	switch p {
	case PilotOn:
		return "on"
	case PilotOff:
		return "off"
	default:
		return ""
	}
}

func rolloffString(r Rolloff) string {
	switch r {
	case Rolloff20:
		return "20"
	case Rolloff25:
		return "25"
	case Rolloff35:
		return "35"
	default:
		return ""
	}
}

func bandwidthString(b Bandwidth) string {
	switch b {
	case BW1712KHz:
		return "1.712"
	case BW5MHz:
		return "5"
	case BW6MHz:
		return "6"
	case BW7MHz:
		return "7"
	case BW8MHz:
		return "8"
	case BW10MHz:
		return "10"
	default:
		return ""
	}
}

func transmissionModeString(t TransmissionMode) string {
	switch t {
	case TMode1K:
		return "1k"
	case TMode2K:
		return "2k"
	case TMode4K:
		return "4k"
	case TMode8K:
		return "8k"
	case TMode16K:
		return "16k"
	case TMode32K:
		return "32k"
	default:
		return ""
	}
}

func guardIntervalString(g GuardInterval) string {
	switch g {
	case GI1_4:
		return "14"
	case GI1_8:
		return "18"
	case GI1_16:
		return "116"
	case GI1_32:
		return "132"
	case GI1_128:
		return "1128"
	case GI19_128:
		return "19128"
	case GI19_256:
		return "19256"
	default:
		return ""
	}
}

// formatPIDs renders a session's PID list as the comma-separated decimal
// list used at the tail of the body ("pids=<p1>,<p2>,...").
func formatPIDs(pids []uint16) string {
	parts := make([]string, len(pids))
	for i, p := range pids {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, ",")
}

// formatTunerLine builds the textual RTCP APP body for one session's mux,
// per spec §4.3. Returns ok=false for delivery systems with no defined
// body grammar (the reporter then emits no RTCP for that session).
func formatTunerLine(mux MuxConfig, srcID, frontendID, level, lock, quality int, pids []uint16) (string, bool) {
	freqMHz := float64(mux.FrequencyHz) / 1000000.0
	pidList := formatPIDs(pids)

	switch mux.DeliverySystem {
	case SysDVBS, SysDVBS2:
		srKHz := float64(mux.SymbolRateHz) / 1000.0
		return fmt.Sprintf(
			"vers=1.0;src=%d;tuner=%d,%d,%d,%d,%s,%s,%s,%s,%s,%s,%s,%s;pids=%s",
			srcID, frontendID, level, lock, quality,
			trimFloat(freqMHz),
			polarizationString(mux.Polarization),
			deliverySystemString(mux.DeliverySystem),
			modulationDVBSString(mux.Modulation),
			pilotString(mux.Pilot),
			rolloffString(mux.Rolloff),
			trimFloat(srKHz),
			fecString(mux.FECInner),
			pidList,
		), true

	case SysDVBT, SysDVBT2:
		return fmt.Sprintf(
			"vers=1.1;tuner=%d,%d,%d,%d,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s;pids=%s",
			frontendID, level, lock, quality,
			trimFloat(freqMHz),
			bandwidthString(mux.Bandwidth),
			deliverySystemString(mux.DeliverySystem),
			transmissionModeString(mux.TransmissionMode),
			modulationQAMString(mux.Modulation),
			guardIntervalString(mux.GuardInterval),
			fecString(mux.CodeRateHP),
			intOrEmpty(mux.PLP), intOrEmpty(mux.T2SystemID), intOrEmpty(mux.SISOMISO),
			pidList,
		), true

	case SysDVBCAnnexA, SysDVBCAnnexC:
		srKHz := float64(mux.SymbolRateHz) / 1000.0
		return fmt.Sprintf(
			// vers=1.1 here, not 1.2 as the grammar comment in the
			// source this is grounded on claims: preserved as-is.
			"vers=1.1;tuner=%d,%d,%d,%d,%s,,%s,%s,%s,%s,%s,%s,%s;pids=%s",
			frontendID, level, lock, quality,
			trimFloat(freqMHz),
			deliverySystemString(mux.DeliverySystem),
			modulationQAMString(mux.Modulation),
			trimFloat(srKHz),
			intOrEmpty(mux.C2TFT), intOrEmpty(mux.DataSlice), intOrEmpty(mux.PLP), intOrEmpty(mux.SpecInv),
			pidList,
		), true

	default:
		return "", false
	}
}

func deliverySystemString(d DeliverySystem) string {
	switch d {
	case SysDVBS:
		return "dvbs"
	case SysDVBS2:
		return "dvbs2"
	case SysDVBT:
		return "dvbt"
	case SysDVBT2:
		return "dvbt2"
	case SysDVBCAnnexA:
		return "dvbc"
	case SysDVBCAnnexC:
		return "dvbc2"
	default:
		return ""
	}
}

func intOrEmpty(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// trimFloat renders a float the way the C "%.f" format this is grounded
// on does: precision zero, so the value is always rounded to the nearest
// integer and never carries a fractional part, even when the input (a
// transponder frequency or symbol rate that doesn't divide evenly by
// 1e6/1e3) is not itself a whole number.
func trimFloat(v float64) string {
	return strconv.Itoa(int(math.RoundToEven(v)))
}

// buildRTCPReport formats and frames a complete application-defined RTCP
// packet into dst, returning the number of bytes written, or ok=false if
// this mux's delivery system has no defined RTCP body (spec §4.3).
func buildRTCPReport(dst []byte, mux MuxConfig, srcID, frontendID, level, lock, quality int, pids []uint16) (int, bool) {
	body, ok := formatTunerLine(mux, srcID, frontendID, level, lock, quality, pids)
	if !ok {
		return 0, false
	}

	if len(body) > rtcpMaxBody {
		body = body[:rtcpMaxBody]
	}
	preLen := len(body)
	if preLen == 0 {
		preLen = 1 // non-zero length field even for an empty body
	}

	padded := preLen
	for padded%4 != 0 {
		padded++
	}

	total := 16 + padded
	if total > len(dst) {
		return 0, false
	}

	copy(dst[16:16+len(body)], body)
	for i := 16 + len(body); i < 16+padded; i++ {
		dst[i] = 0
	}

	dst[0] = 0x80
	dst[1] = rtcpAppType
	dst[2] = byte(((total / 4) - 1) >> 8)
	dst[3] = byte((total / 4) - 1)
	dst[4], dst[5], dst[6], dst[7] = 0, 0, 0, 0
	dst[8], dst[9], dst[10], dst[11] = 'S', 'E', 'S', '1'
	dst[12], dst[13] = 0, 0
	dst[14] = byte(preLen >> 8)
	dst[15] = byte(preLen)

	return total, true
}

// scaleLevel and scaleQuality implement the level (0..240) / quality (0..15) clamping
// rules of spec §4.3. The decibel branch's multipliers are taken as-is
// from the source this is grounded on; they saturate at the clamp
// ceiling for almost any positive input (see spec §9 Open Questions).
func scaleLevel(signal uint32, sc Scale) int {
	switch sc {
	case ScaleRelative:
		return clamp(int(signal)*245/0xffff, 0, 240)
	case ScaleDecibel:
		return clamp(int(signal)*900000, 0, 240)
	default:
		return 0
	}
}

func scaleQuality(signal uint32, sc Scale) int {
	switch sc {
	case ScaleRelative:
		return clamp(int(signal)*16/0xffff, 0, 15)
	case ScaleDecibel:
		return clamp(int(signal)*100000, 0, 15)
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
