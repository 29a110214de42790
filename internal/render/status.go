package render

import "github.com/gookit/color"

// Success formats a passed status line.
func Success(format string, args ...interface{}) string {
	return color.Success.Sprintf(format, args...)
}

// Failure formats a failed status line.
func Failure(format string, args ...interface{}) string {
	return color.Danger.Sprintf(format, args...)
}

// Info formats an informational status line.
func Info(format string, args ...interface{}) string {
	return color.Info.Sprintf(format, args...)
}

// Warn formats a warning status line.
func Warn(format string, args ...interface{}) string {
	return color.Warn.Sprintf(format, args...)
}

// DisableColor turns off ANSI styling for all status output.
func DisableColor() {
	color.Disable()
}
