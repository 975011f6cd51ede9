package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.StudyAPI over a Unix domain socket.
// Each method maps 1:1 to the StudyAPI interface. Every command returns the
// full StudyState so the caller can redraw without a second round trip.
//
//   Method           Params                                       Result
//   ──────────────   ──────────────────────────────────────────   ─────────────────────
//   State            (none)                                       StudyState
//   Open             {Folder: FolderKey, DeckID: int64}           StudyState
//   CloseDeck        (none)                                       StudyState
//   Judge            {Direction: "knew" | "didnt_know"}           StudyState
//   Previous         (none)                                       StudyState
//   Import           {Name: string, Cards: []CardInput}           StudyState
//   CreateFolder     {Name: string}                               StudyState
//   MoveDeck         {DeckID: int64, From: string, To: string}    StudyState
//   Reset            {DeckID: int64, Folder: FolderKey}           StudyState
//   DeleteDeck       {DeckID: int64, Folder: string}              StudyState
//   DeleteFolder     {Name: string}                               StudyState
//   DailyJudgments   {DeckID: int64, Days: int}                   []DailyJudgments
//
// FolderKey: {kind: "original" | "learned", name: string}.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (session failure)

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeApplication    = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/flashdeck/flashdeck.sock, falling back to
// ~/.local/state/flashdeck/flashdeck.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "flashdeck", "flashdeck.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/flashdeck.sock"
	}
	return filepath.Join(home, ".local", "state", "flashdeck", "flashdeck.sock")
}
