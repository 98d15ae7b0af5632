// Package ipc forwards CLI commands to the attached owner process over a unix socket.
package ipc

// Commands understood by the owner process.
const (
	CommandRun        = "run"
	CommandStop       = "stop"
	CommandUpload     = "upload"
	CommandSnapshot   = "snapshot"
	CommandStatus     = "status"
	CommandState      = "state"
	CommandDisconnect = "disconnect"
)

// Request is one newline-delimited JSON command.
type Request struct {
	Command string `json:"command"`
	// Name is the project for status; empty means the current project.
	Name string `json:"name,omitempty"`
	// Path is the snapshot destination; empty means the default path.
	Path string `json:"path,omitempty"`
	// Clipboard routes a snapshot to the clipboard command instead of a file.
	Clipboard bool `json:"clipboard,omitempty"`
}

// Response is the owner's reply to one Request.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Address string `json:"address,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
