package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedEnvelope indicates the frame is not a valid {cmd, data} object.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrUnknownCommandKind indicates the envelope names a kind this host does not know.
	ErrUnknownCommandKind = errors.New("unknown command kind")
)

type envelope struct {
	Cmd  Kind            `json:"cmd"`
	Data json.RawMessage `json:"data"`
}

type nameData struct {
	Name string `json:"name"`
}

type uploadData struct {
	Dst  string `json:"dst"`
	File Bytes  `json:"file"`
}

type logData struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

type statusBarData struct {
	RunningProjects []string `json:"runningProjects"`
}

type snapshotRequestData struct {
	File Bytes `json:"file"`
}

type snapshotResultData struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	File    Bytes  `json:"file"`
}

// snapshotInbound is any snapshot frame from the device. Devices that
// acknowledge through a result frame send only the file, so a missing success
// means the capture succeeded.
type snapshotInbound struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	File    Bytes  `json:"file"`
}

type statusData struct {
	Name  string       `json:"name"`
	State ProjectState `json:"state"`
}

type resultData struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Encode serializes a command into its wire envelope.
func Encode(cmd Command) (string, error) {
	payload, err := wirePayload(cmd)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", cmd.Kind(), err)
	}

	out, err := json.Marshal(envelope{Cmd: cmd.Kind(), Data: data})
	if err != nil {
		return "", fmt.Errorf("encode %s envelope: %w", cmd.Kind(), err)
	}
	return string(out), nil
}

func wirePayload(cmd Command) (any, error) {
	switch c := cmd.(type) {
	case Run:
		return nameData{Name: c.ProjectName}, nil
	case Stop:
		return nameData{Name: c.ProjectName}, nil
	case Remove:
		return nameData{Name: c.ProjectName}, nil
	case Upload:
		return uploadData{Dst: c.DestPath, File: c.Bytes}, nil
	case Log:
		return logData{Level: c.Level, Message: c.Message}, nil
	case StatusBarUpdate:
		names := c.RunningProjectNames
		if names == nil {
			names = []string{}
		}
		return statusBarData{RunningProjects: names}, nil
	case Snapshot:
		return snapshotRequestData{File: Bytes{}}, nil
	case SnapshotResult:
		return snapshotResultData{Success: c.Success, Message: c.Message, File: c.Bytes}, nil
	case StatusQuery:
		return statusData{Name: c.Name}, nil
	case StatusResult:
		return statusData{Name: c.Name, State: c.State}, nil
	case OperationResult:
		return resultData{Success: c.Success, Message: c.Message}, nil
	case nil:
		return nil, errors.New("encode nil command")
	default:
		return nil, fmt.Errorf("encode unsupported command %T", cmd)
	}
}

// Decode parses one wire envelope.
//
// Non-object input and payloads of the wrong shape yield ErrMalformedEnvelope;
// a well-formed envelope with an unrecognised cmd yields ErrUnknownCommandKind.
// A snapshot frame always decodes as SnapshotResult since the host never
// receives capture requests.
func Decode(wire string) (Command, error) {
	var env struct {
		Cmd  *Kind          `json:"cmd"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(wire), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Cmd == nil {
		return nil, fmt.Errorf("%w: missing cmd", ErrMalformedEnvelope)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = []byte("{}")
	}

	kind := *env.Cmd
	switch kind {
	case KindRun, KindStop, KindRemove:
		var d nameData
		if err := decodeData(kind, data, &d); err != nil {
			return nil, err
		}
		switch kind {
		case KindRun:
			return Run{ProjectName: d.Name}, nil
		case KindStop:
			return Stop{ProjectName: d.Name}, nil
		default:
			return Remove{ProjectName: d.Name}, nil
		}
	case KindUpload:
		var d uploadData
		if err := decodeData(kind, data, &d); err != nil {
			return nil, err
		}
		return Upload{DestPath: d.Dst, Bytes: []byte(d.File)}, nil
	case KindLog:
		var d logData
		if err := decodeData(kind, data, &d); err != nil {
			return nil, err
		}
		return Log{Level: d.Level, Message: d.Message}, nil
	case KindStatusBar:
		var d statusBarData
		if err := decodeData(kind, data, &d); err != nil {
			return nil, err
		}
		if len(d.RunningProjects) == 0 {
			d.RunningProjects = nil
		}
		return StatusBarUpdate{RunningProjectNames: d.RunningProjects}, nil
	case KindSnapshot:
		var d snapshotInbound
		if err := decodeData(kind, data, &d); err != nil {
			return nil, err
		}
		result := SnapshotResult{Success: true, Message: d.Message, Bytes: []byte(d.File)}
		if d.Success != nil {
			result.Success = *d.Success
		}
		return result, nil
	case KindStatus:
		var d statusData
		if err := decodeData(kind, data, &d); err != nil {
			return nil, err
		}
		if d.State == "" {
			return StatusQuery{Name: d.Name}, nil
		}
		return StatusResult{Name: d.Name, State: d.State}, nil
	case KindResult:
		var d resultData
		if err := decodeData(kind, data, &d); err != nil {
			return nil, err
		}
		return OperationResult{Success: d.Success, Message: d.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommandKind, string(kind))
	}
}

func decodeData(kind Kind, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedEnvelope, kind, err)
	}
	return nil
}
