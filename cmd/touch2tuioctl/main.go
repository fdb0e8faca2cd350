package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
)

const callTimeout = 5 * time.Second

// controlRequest mirrors the service control envelope.
type controlRequest struct {
	Action  string `json:"action"`
	Channel string `json:"channel,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
	Token   string `json:"token,omitempty"`
}

type controlResponse struct {
	OK    bool            `json:"ok"`
	RunID string          `json:"run_id"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RemoteControl is one connection to a running touch2tuio control endpoint.
type RemoteControl struct {
	addr string
	conn net.Conn
	r    *bufio.Reader
}

func main() {
	addr := flag.String("addr", "127.0.0.1:9331", "control endpoint address")
	action := flag.String("action", "status", "status | channels | cursors | set_channel | release_hooks | save_settings")
	channel := flag.String("channel", "", "channel for set_channel: udp1 | udp2 | tcp")
	enabled := flag.Bool("enabled", true, "channel state for set_channel")
	token := flag.String("token", os.Getenv("TOUCH2TUIO_CONTROL_TOKEN"), "control token, if the service requires one")
	flag.Parse()

	c := NewRemoteControl(*addr)
	defer c.Close()

	req := controlRequest{Action: strings.TrimSpace(*action), Channel: *channel, Enabled: *enabled, Token: *token}
	var out json.RawMessage
	runID, err := c.call(req, &out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "touch2tuioctl: %v\n", err)
		os.Exit(1)
	}
	if err := printResult(os.Stdout, runID, out); err != nil {
		fmt.Fprintf(os.Stderr, "touch2tuioctl: %v\n", err)
		os.Exit(1)
	}
}

func NewRemoteControl(addr string) *RemoteControl {
	return &RemoteControl{addr: addr}
}

// call sends one request and decodes the response payload into out.
func (c *RemoteControl) call(req controlRequest, out any) (string, error) {
	if err := c.ensureConn(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	if err := c.conn.SetDeadline(time.Now().Add(callTimeout)); err != nil {
		return "", err
	}
	payload = append(payload, '\n')
	if _, err := c.conn.Write(payload); err != nil {
		c.resetConn()
		return "", err
	}
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		c.resetConn()
		return "", err
	}
	var resp controlResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return resp.RunID, errors.New(resp.Error)
	}
	if out == nil || len(resp.Data) == 0 {
		return resp.RunID, nil
	}
	return resp.RunID, json.Unmarshal(resp.Data, out)
}

func (c *RemoteControl) ensureConn() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, 3*time.Second)
	if err != nil {
		return err
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	return nil
}

func (c *RemoteControl) resetConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.r = nil
}

func (c *RemoteControl) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	return err
}

func printResult(w io.Writer, runID string, data json.RawMessage) error {
	fmt.Fprintf(w, "run %s\n", runID)
	if len(data) == 0 {
		return nil
	}
	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", pretty)
	return err
}
