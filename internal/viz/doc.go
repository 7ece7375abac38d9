// Package viz draws simulations in the terminal.
//
// [Model] is a Bubble Tea program that steps a scenario live and renders
// bodies and joints on a braille [Canvas] through an orbiting [Camera].
// [Picker] chooses the scenario and preset first. [Plot] renders stored
// trace channels with asciigraph for non-interactive use.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single step while paused
//	R     - Rebuild the scenario
//	Tab   - Cycle the plotted channel
//	X/Y   - Orbit the camera
//	+/-   - Zoom
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
