package socketrpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

// Client implements model.StudyAPI over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	timeout time.Duration
	scanner *bufio.Scanner
	encoder *json.Encoder
}

var _ model.StudyAPI = (*Client)(nil)

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		timeout: model.DefaultRequestTimeout,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
func (c *Client) call(method string, params interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	var paramsData json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("socketrpc: marshal params: %w", err)
		}
		paramsData = data
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}
	if resp.ID != id {
		return fmt.Errorf("socketrpc: response id %d, want %d", resp.ID, id)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) state(method string, params interface{}) (model.StudyState, error) {
	var st model.StudyState
	err := c.call(method, params, &st)
	return st, err
}

func (c *Client) State() (model.StudyState, error) {
	return c.state("State", nil)
}

func (c *Client) Open(folder model.FolderKey, deckID int64) (model.StudyState, error) {
	return c.state("Open", openParams{Folder: folder, DeckID: deckID})
}

func (c *Client) CloseDeck() (model.StudyState, error) {
	return c.state("CloseDeck", nil)
}

func (c *Client) Judge(dir model.Direction) (model.StudyState, error) {
	return c.state("Judge", judgeParams{Direction: dir})
}

func (c *Client) Previous() (model.StudyState, error) {
	return c.state("Previous", nil)
}

func (c *Client) Import(name string, cards []model.CardInput) (model.StudyState, error) {
	return c.state("Import", importParams{Name: name, Cards: cards})
}

func (c *Client) CreateFolder(name string) (model.StudyState, error) {
	return c.state("CreateFolder", nameParams{Name: name})
}

func (c *Client) MoveDeck(deckID int64, from, to string) (model.StudyState, error) {
	return c.state("MoveDeck", moveParams{DeckID: deckID, From: from, To: to})
}

func (c *Client) Reset(deckID int64, folder model.FolderKey) (model.StudyState, error) {
	return c.state("Reset", resetParams{DeckID: deckID, Folder: folder})
}

func (c *Client) DeleteDeck(deckID int64, folder string) (model.StudyState, error) {
	return c.state("DeleteDeck", deleteDeckParams{DeckID: deckID, Folder: folder})
}

func (c *Client) DeleteFolder(name string) (model.StudyState, error) {
	return c.state("DeleteFolder", nameParams{Name: name})
}

func (c *Client) DailyJudgments(deckID int64, days int) ([]model.DailyJudgments, error) {
	var result []model.DailyJudgments
	err := c.call("DailyJudgments", dailyParams{DeckID: deckID, Days: days}, &result)
	return result, err
}
