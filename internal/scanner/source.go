package scanner

import "fmt"

// Source kinds accepted by NewSource.
const (
	SourceLines  = "lines"
	SourceFrames = "frames"
)

// NewSource builds the capture source named by kind. device feeds line
// sources, framePath feeds frame sources.
func NewSource(kind, device, framePath string) (Source, error) {
	switch kind {
	case SourceLines, "":
		return NewDeviceSource(device), nil
	case SourceFrames:
		return NewFileFrameSource(framePath), nil
	default:
		return nil, fmt.Errorf("unknown scanner source %q", kind)
	}
}
