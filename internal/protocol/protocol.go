// Package protocol defines the device command envelope and its JSON wire codec.
package protocol

// Kind is the envelope discriminator carried in the "cmd" field.
type Kind string

const (
	KindRun       Kind = "run"
	KindStop      Kind = "stop"
	KindRemove    Kind = "remove"
	KindUpload    Kind = "upload"
	KindLog       Kind = "log"
	KindStatusBar Kind = "statusBar"
	KindSnapshot  Kind = "snapshot"
	KindStatus    Kind = "status"
	KindResult    Kind = "result"
)

// LogLevel is the severity attached to device log pushes.
type LogLevel string

const (
	LevelInfo  LogLevel = "Info"
	LevelWarn  LogLevel = "Warn"
	LevelError LogLevel = "Error"
)

// ProjectState is the device-reported execution state of one project.
type ProjectState string

const (
	StateRunning ProjectState = "Running"
	StateFree    ProjectState = "Free"
)

// Command is one variant of the tagged command union.
type Command interface {
	Kind() Kind
}

// Run asks the device to start a project.
type Run struct {
	ProjectName string
}

// Stop asks the device to stop a running project.
type Stop struct {
	ProjectName string
}

// Remove asks the device to delete a project's files.
type Remove struct {
	ProjectName string
}

// Upload writes one file to DestPath on the device.
type Upload struct {
	DestPath string
	Bytes    []byte
}

// Log is a device log line pushed to the host.
type Log struct {
	Level   LogLevel
	Message string
}

// StatusBarUpdate is pushed whenever the set of running projects changes.
type StatusBarUpdate struct {
	RunningProjectNames []string
}

// Snapshot requests a screen capture.
type Snapshot struct{}

// SnapshotResult carries the screen capture, or the reason it failed.
type SnapshotResult struct {
	Success bool
	Message string
	Bytes   []byte
}

// StatusQuery asks for the state of one project.
type StatusQuery struct {
	Name string
}

// StatusResult reports the state of one project.
type StatusResult struct {
	Name  string
	State ProjectState
}

// OperationResult is the generic acknowledgement for device operations.
type OperationResult struct {
	Success bool
	Message string
}

func (Run) Kind() Kind             { return KindRun }
func (Stop) Kind() Kind            { return KindStop }
func (Remove) Kind() Kind          { return KindRemove }
func (Upload) Kind() Kind          { return KindUpload }
func (Log) Kind() Kind             { return KindLog }
func (StatusBarUpdate) Kind() Kind { return KindStatusBar }
func (Snapshot) Kind() Kind        { return KindSnapshot }
func (SnapshotResult) Kind() Kind  { return KindSnapshot }
func (StatusQuery) Kind() Kind     { return KindStatus }
func (StatusResult) Kind() Kind    { return KindStatus }
func (OperationResult) Kind() Kind { return KindResult }
