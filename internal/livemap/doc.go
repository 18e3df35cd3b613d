// Package livemap draws where subjects are.
//
// A viewer subscribes to the relay hub's push channel, parses each message
// into a presence update, applies it to its own presence state (last write
// wins) and redraws the whole scene: every room of the registry, then one
// marker per subject at its room's anchor. Subjects in rooms the registry
// does not know, including Unknown, are logged and not drawn.
//
// Drawing goes through the Canvas interface. SVGCanvas writes the scene to a
// file after every redraw; RecordingCanvas keeps the draw calls for tests.
package livemap
