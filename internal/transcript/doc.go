// Package transcript turns WebVTT-style caption text into numbered chunks.
//
// Segment is a line-scanning state machine: every time-range line opens a
// new cue, text lines inside a cue accumulate, and each cue with text becomes
// one Chunk. Chunk numbers are contiguous from 1 and are the foreign key that
// model responses use to reference evidence, so they never depend on cue
// indices embedded in the source.
//
// A leading "Label: " (or a <v Label> voice span) attributes the chunk to a
// speaker; otherwise the speaker is UnknownSpeaker. Segment never fails. Empty
// results mean the input had no usable content.
package transcript
