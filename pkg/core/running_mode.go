package core

// RunningMode selects the calling convention a task instance is fixed to.
// It is chosen once at construction; switching modes requires a new task.
type RunningMode int

const (
	// RunningModeImage accepts single, independent images.
	RunningModeImage RunningMode = iota + 1
	// RunningModeVideo accepts decoded video frames with monotonically
	// increasing timestamps.
	RunningModeVideo
	// RunningModeLiveStream accepts frames from a live source and delivers
	// results asynchronously through a callback.
	RunningModeLiveStream
)

// String returns the display name of the running mode.
func (m RunningMode) String() string {
	switch m {
	case RunningModeImage:
		return "Image"
	case RunningModeVideo:
		return "Video"
	case RunningModeLiveStream:
		return "Live Stream"
	default:
		return "Unknown"
	}
}

// methodName is the lowercase name used in precondition error messages.
func (m RunningMode) methodName() string {
	switch m {
	case RunningModeImage:
		return "image"
	case RunningModeVideo:
		return "video"
	case RunningModeLiveStream:
		return "live stream"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the three defined modes.
func (m RunningMode) Valid() bool {
	return m >= RunningModeImage && m <= RunningModeLiveStream
}

// CheckRunningMode verifies that a task configured with current may invoke an
// entry point requiring the given mode. It is a pure precondition check with
// no side effects; on mismatch it returns an INVALID_ARGUMENT error naming
// both modes.
func CheckRunningMode(required, current RunningMode) error {
	if required == current {
		return nil
	}
	return InvalidArgumentf("the task is not initialized with the %s mode. Current Running Mode: %s",
		required.methodName(), current)
}
