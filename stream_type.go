package astitsfilt

import "fmt"

// StreamType represents the type of an elementary stream as listed in a PMT
type StreamType uint8

// Stream types
const (
	StreamTypeMPEG1Video                 StreamType = 0x01 // ISO/IEC 11172-2
	StreamTypeMPEG2Video                 StreamType = 0x02 // ITU-T Rec. H.262 and ISO/IEC 13818-2
	StreamTypeMPEG1Audio                 StreamType = 0x03 // ISO/IEC 11172-3
	StreamTypeMPEG2HalvedSampleRateAudio StreamType = 0x04 // ISO/IEC 13818-3
	StreamTypeMPEG2PacketizedData        StreamType = 0x06 // ITU-T Rec. H.222 and ISO/IEC 13818-1 i.e., DVB subtitles/VBI and AC-3
	StreamTypeADTS                       StreamType = 0x0f // ISO/IEC 13818-7 Audio with ADTS transport syntax
	StreamTypeMPEG4Video                 StreamType = 0x10 // ISO/IEC 14496-2
	StreamTypeAACLATM                    StreamType = 0x11 // ISO/IEC 14496-3 Audio with the LATM transport syntax
	StreamTypeMetadata                   StreamType = 0x15
	StreamTypeH264Video                  StreamType = 0x1b // ITU-T Rec. H.264 and ISO/IEC 14496-10
	StreamTypeH265Video                  StreamType = 0x24 // ITU-T Rec. H.265 and ISO/IEC 23008-2
	StreamTypeCAVSVideo                  StreamType = 0x42 // AVS Video
	StreamTypeVC1Video                   StreamType = 0xea // VC-1 Video
	StreamTypeDIRACVideo                 StreamType = 0xd1 // Dirac Video
	StreamTypeAC3Audio                   StreamType = 0x81 // Dolby Digital
	StreamTypeDTSAudio                   StreamType = 0x82 // DTS
	StreamTypeTRUEHDAudio                StreamType = 0x83 // Dolby TrueHD
	StreamTypeEAC3Audio                  StreamType = 0x87 // Dolby Digital Plus
	StreamTypeSCTE35                     StreamType = 0x86 // SCTE-35 splice information
)

// String implements the Stringer interface
func (t StreamType) String() string {
	switch t {
	case StreamTypeMPEG1Video:
		return "MPEG1 Video"
	case StreamTypeMPEG2Video:
		return "MPEG2 Video"
	case StreamTypeMPEG1Audio:
		return "MPEG1 Audio"
	case StreamTypeMPEG2HalvedSampleRateAudio:
		return "MPEG2 Audio"
	case StreamTypeMPEG2PacketizedData:
		return "DVB subtitles/VBI or AC-3"
	case StreamTypeADTS:
		return "ADTS"
	case StreamTypeMPEG4Video:
		return "MPEG4 Video"
	case StreamTypeAACLATM:
		return "AAC LATM"
	case StreamTypeMetadata:
		return "Metadata"
	case StreamTypeH264Video:
		return "H264 Video"
	case StreamTypeH265Video:
		return "H265 Video"
	case StreamTypeCAVSVideo:
		return "CAVS Video"
	case StreamTypeVC1Video:
		return "VC1 Video"
	case StreamTypeDIRACVideo:
		return "DIRAC Video"
	case StreamTypeAC3Audio:
		return "AC3 Audio"
	case StreamTypeDTSAudio:
		return "DTS Audio"
	case StreamTypeTRUEHDAudio:
		return "TRUEHD Audio"
	case StreamTypeEAC3Audio:
		return "EAC3 Audio"
	case StreamTypeSCTE35:
		return "SCTE 35"
	}
	return fmt.Sprintf("Unknown (0x%x)", uint8(t))
}
