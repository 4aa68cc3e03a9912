// Package input defines the boundary between the capture/replay engine and the host's
// input devices: hooks that deliver pointer and keyboard callbacks, and injectors that
// synthesise them. Concrete backends live in sub-packages: terminal (tcell based
// capture), uinput (Linux virtual devices) and virtual (an in-memory loopback device
// used for dry runs and tests).
package input
