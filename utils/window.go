package utils

import "github.com/twdocs/ocr-letter-extraction/dto"

// Window is a bounded text segment a recognizer scans, anchored back to
// absolute document coordinates: Col is the rune offset of Text within
// line Line.
type Window struct {
	Text string
	Line int
	Col  int
	Dir  dto.Direction
}
