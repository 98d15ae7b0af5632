package commander

import (
	"context"
	"errors"
	"sync"

	"github.com/rbright/autojs-host/internal/correlator"
	"github.com/rbright/autojs-host/internal/protocol"
	"github.com/rbright/autojs-host/internal/workspace"
)

// fakeDevice answers sent commands through a real correlator, the way the
// session read loop would.
type fakeDevice struct {
	corr *correlator.Correlator

	mu         sync.Mutex
	sent       []protocol.Command
	respond    func(protocol.Command) []protocol.Command
	sendErr    error
	connectErr error
	connects   int
	sentSignal chan struct{}
}

func newFakeDevice(respond func(protocol.Command) []protocol.Command) *fakeDevice {
	return &fakeDevice{
		corr:       correlator.New(nil),
		respond:    respond,
		sentSignal: make(chan struct{}, 64),
	}
}

func (d *fakeDevice) ConnectAutomatically(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connects++
	return d.connectErr
}

func (d *fakeDevice) Send(_ context.Context, cmd protocol.Command) error {
	d.mu.Lock()
	if d.sendErr != nil {
		err := d.sendErr
		d.mu.Unlock()
		return err
	}
	d.sent = append(d.sent, cmd)
	respond := d.respond
	d.mu.Unlock()

	d.sentSignal <- struct{}{}
	if respond == nil {
		return nil
	}
	for _, reply := range respond(cmd) {
		d.deliver(reply)
	}
	return nil
}

func (d *fakeDevice) deliver(reply protocol.Command) {
	switch reply.(type) {
	case protocol.OperationResult:
		d.corr.Deliver(correlator.CategoryResult, reply)
	case protocol.StatusResult:
		d.corr.Deliver(correlator.CategoryStatus, reply)
	case protocol.SnapshotResult:
		d.corr.Deliver(correlator.CategorySnapshot, reply)
	}
}

func (d *fakeDevice) AwaitNext(category correlator.Category) *correlator.Waiter {
	return d.corr.AwaitNext(category)
}

func (d *fakeDevice) ResetAll(category correlator.Category) {
	d.corr.ResetAll(category)
}

func (d *fakeDevice) sentCommands() []protocol.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.Command(nil), d.sent...)
}

// scriptedDevice acknowledges everything and reports state for status queries.
func scriptedDevice(state protocol.ProjectState, failures map[protocol.Kind]string) func(protocol.Command) []protocol.Command {
	return func(cmd protocol.Command) []protocol.Command {
		if message, ok := failures[cmd.Kind()]; ok {
			return []protocol.Command{protocol.OperationResult{Success: false, Message: message}}
		}
		ack := protocol.OperationResult{Success: true}
		switch typed := cmd.(type) {
		case protocol.StatusQuery:
			return []protocol.Command{
				ack,
				protocol.StatusBarUpdate{RunningProjectNames: []string{typed.Name}},
				protocol.StatusResult{Name: typed.Name, State: state},
			}
		case protocol.Snapshot:
			return []protocol.Command{ack, protocol.SnapshotResult{Success: true, Bytes: []byte{0x89, 0x50}}}
		default:
			return []protocol.Command{ack}
		}
	}
}

type fakeWorkspace struct {
	name    string
	imports []string
	files   []workspace.File
	err     error
}

func (w fakeWorkspace) CurrentProjectName() (string, error) {
	if w.err != nil {
		return "", w.err
	}
	return w.name, nil
}

func (w fakeWorkspace) ImportProjectNames() ([]string, error) {
	return w.imports, w.err
}

func (w fakeWorkspace) UploadFiles() ([]workspace.File, error) {
	return w.files, w.err
}

func readFromMap(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, errors.New("file not found")
		}
		return []byte(data), nil
	}
}

type recordedDiagnostics struct {
	mu    sync.Mutex
	infos []string
}

func (r *recordedDiagnostics) Info(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, message)
}

func (r *recordedDiagnostics) Warn(string) {}

func (r *recordedDiagnostics) Error(string) {}
