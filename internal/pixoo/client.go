package pixoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jwulff/glucoscape/internal/domain"
)

// DefaultPort is the default Pixoo HTTP API port.
const DefaultPort = 80

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 5 * time.Second

// Client is an HTTP client for communicating with Pixoo devices.
type Client struct {
	Host       string
	Port       int
	HTTPClient *http.Client
	Logger     *slog.Logger
	testURL    string // For testing with httptest
}

// NewClient creates a new Pixoo client. addr is an IP or host, optionally with ":port".
func NewClient(addr string) *Client {
	host, port := addr, DefaultPort
	if h, p, err := net.SplitHostPort(addr); err == nil {
		if n, err := strconv.Atoi(p); err == nil {
			host, port = h, n
		}
	}
	return &Client{
		Host: host,
		Port: port,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		Logger: slog.Default(),
	}
}

// Endpoint returns the full API endpoint URL.
func (c *Client) Endpoint() string {
	if c.testURL != "" {
		return c.testURL
	}
	return fmt.Sprintf("http://%s/post", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

// sendCommand posts a command and checks the device's error_code.
func (c *Client) sendCommand(ctx context.Context, name string, command any) ([]byte, error) {
	data, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.Logger.Debug("sending pixoo command", "command", name, "bytes", len(data))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.ErrorCode != 0 {
		return nil, &DeviceError{Command: name, Code: result.ErrorCode}
	}

	return body, nil
}

// SendFrame shows a still frame. The device caches animations by PicID, so
// the GIF counter is reset first to make the new frame replace the old one.
func (c *Client) SendFrame(ctx context.Context, frame *domain.Frame) error {
	cmd, err := CreateFrameCommand(frame, 1)
	if err != nil {
		return err
	}
	if _, err := c.sendCommand(ctx, CommandResetGifID, PixooCommand{Command: CommandResetGifID}); err != nil {
		return err
	}
	_, err = c.sendCommand(ctx, CommandSendGif, cmd)
	return err
}

// SetBrightness sets the display brightness (0-100).
func (c *Client) SetBrightness(ctx context.Context, brightness int) error {
	_, err := c.sendCommand(ctx, CommandSetBrightness, CreateBrightnessCommand(brightness))
	return err
}

// IsReachable checks if the device is reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	_, err := c.sendCommand(ctx, CommandGetDeviceTime, PixooCommand{Command: CommandGetDeviceTime})
	return err == nil
}
