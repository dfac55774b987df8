// Package pixoo pushes frames to a Divoom Pixoo64 over its local HTTP API.
//
// Endpoint: POST http://<ip>/post with a JSON command.
//
// Frame format:
// - 64x64 pixels
// - RGB (3 bytes per pixel)
// - Base64 encoded
// - Total: 64 * 64 * 3 = 12,288 bytes raw, ~16KB base64
package pixoo

import (
	"encoding/base64"
	"fmt"

	"github.com/jwulff/glucoscape/internal/domain"
)

// Command names understood by the device.
const (
	CommandSendGif       = "Draw/SendHttpGif"
	CommandResetGifID    = "Draw/ResetHttpGifId"
	CommandGetDeviceTime = "Device/GetDeviceTime"
	CommandSetBrightness = "Channel/SetBrightness"
)

// PixooCommand represents a Pixoo API command without arguments.
type PixooCommand struct {
	Command string `json:"Command"`
}

// FrameCommand represents a Draw/SendHttpGif command carrying a single frame.
type FrameCommand struct {
	Command   string `json:"Command"`
	PicNum    int    `json:"PicNum"`
	PicWidth  int    `json:"PicWidth"`
	PicOffset int    `json:"PicOffset"`
	PicID     int    `json:"PicID"`
	PicSpeed  int    `json:"PicSpeed"`
	PicData   string `json:"PicData"`
}

// BrightnessCommand represents a Channel/SetBrightness command.
type BrightnessCommand struct {
	Command    string `json:"Command"`
	Brightness int    `json:"Brightness"`
}

// Response is the envelope every command answers with.
type Response struct {
	ErrorCode int `json:"error_code"`
}

// DeviceError is returned when the device answers with a non-zero error_code.
type DeviceError struct {
	Command string
	Code    int
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("pixoo rejected %s: error_code %d", e.Command, e.Code)
}

// EncodeFrameToBase64 encodes frame pixels to base64 for Pixoo API.
func EncodeFrameToBase64(frame *domain.Frame) string {
	return base64.StdEncoding.EncodeToString(frame.Pixels)
}

// CreateFrameCommand creates a Draw/SendHttpGif command for a still frame.
func CreateFrameCommand(frame *domain.Frame, picID int) (FrameCommand, error) {
	if frame.Width != frame.Height {
		return FrameCommand{}, fmt.Errorf("frame must be square, got %dx%d", frame.Width, frame.Height)
	}
	if picID <= 0 {
		picID = 1
	}
	return FrameCommand{
		Command:   CommandSendGif,
		PicNum:    1,
		PicWidth:  frame.Width,
		PicOffset: 0,
		PicID:     picID,
		PicSpeed:  1000,
		PicData:   EncodeFrameToBase64(frame),
	}, nil
}

// CreateBrightnessCommand creates a Channel/SetBrightness command.
func CreateBrightnessCommand(brightness int) BrightnessCommand {
	// Clamp to 0-100
	brightness = min(max(brightness, 0), 100)

	return BrightnessCommand{
		Command:    CommandSetBrightness,
		Brightness: brightness,
	}
}
