//go:build windows

package dispatch

// WatchSIGUSR2 is a no-op on Windows, which has no POSIX signal
// equivalent — the tray menu and CLI dispatch sources remain available.
func WatchSIGUSR2(d *Dispatcher, bindingID string, stopCh <-chan struct{}) {}
