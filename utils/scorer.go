package utils

import (
	"github.com/twdocs/ocr-letter-extraction/config"
	"github.com/twdocs/ocr-letter-extraction/dto"
)

// NominalMaxScore is the score a perfect candidate reaches under the
// default weights; confidence is the score normalized against it.
const NominalMaxScore = 3.0

// Score collapses a candidate's evidence terms into the single ranking
// scalar. Positional distance and format validity carry the most weight.
func Score(c *dto.Candidate, w config.Weights) float64 {
	return c.LabelConf*w.Label +
		c.FormatConf*w.Format +
		c.DistScore*w.Dist +
		c.DirPrior*w.Dir +
		c.ContextBonus*w.Context -
		c.Penalty*w.Penalty
}

// DistScore maps line and column distance onto (0,1]: 1.0 at the label
// itself, monotonically decreasing as either distance grows. A full line
// of distance costs as much as ten columns.
func DistScore(lineDist, colDist int) float64 {
	if lineDist < 0 {
		lineDist = -lineDist
	}
	if colDist < 0 {
		colDist = -colDist
	}
	return 1.0 / (1.0 + 0.1*float64(colDist) + float64(lineDist))
}

// Confidence derives the surfaced [0,1] confidence from a raw score.
func Confidence(score float64) float64 {
	c := score / NominalMaxScore
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
