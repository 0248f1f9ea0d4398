// Package detection projects raw object detector output into the records
// sent on the detection channel and counts them per class.
package detection

import (
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/visionlink/internal/detector"
)

// DefaultLabels are the class names of the reference model, indexed by
// class id.
var DefaultLabels = []string{"human", "fire"}

// Detection is one detected object in frame pixel coordinates.
type Detection struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"w"`
	Height    int     `json:"h"`
	ClassID   int     `json:"class_id"`
	ClassName string  `json:"class_name"`
	Score     float64 `json:"score"`
}

// Batch is the payload of one detection-channel message. Detections keep
// detector output order and are never nil, so an empty batch encodes as [].
type Batch struct {
	TimestampMs int64       `json:"-"`
	Detections  []Detection `json:"detections"`
	FrameWidth  int         `json:"frame_width"`
	FrameHeight int         `json:"frame_height"`
}

// Counts maps a class name to the number of detections of that class.
// Every configured label is present, with zero when absent from the frame.
type Counts map[string]int

// format writes the counts in label order, e.g. "human=1 fire=0".
func (c Counts) format(labels []string) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l+"="+strconv.Itoa(c[l]))
	}
	return strings.Join(parts, " ")
}

// Total returns the number of counted detections.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Aggregator converts detector output using a fixed label set. It keeps no
// state between calls.
type Aggregator struct {
	labels []string
}

// NewAggregator returns an Aggregator for labels. Nil or empty labels
// select DefaultLabels.
func NewAggregator(labels []string) *Aggregator {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	l := make([]string, len(labels))
	copy(l, labels)
	return &Aggregator{labels: l}
}

// Labels returns the configured class names.
func (a *Aggregator) Labels() []string {
	out := make([]string, len(a.labels))
	copy(out, a.labels)
	return out
}

// ClassName returns the label for id, or "class_<id>" when id is outside
// the label set.
func (a *Aggregator) ClassName(id int) string {
	if id >= 0 && id < len(a.labels) {
		return a.labels[id]
	}
	return "class_" + strconv.Itoa(id)
}

// Aggregate projects objects into Detections, preserving order, and counts
// the detections whose class is in the label set.
func (a *Aggregator) Aggregate(objects []detector.Object) ([]Detection, Counts) {
	detections := make([]Detection, 0, len(objects))
	counts := make(Counts, len(a.labels))
	for _, l := range a.labels {
		counts[l] = 0
	}

	for _, o := range objects {
		d := Detection{
			X:         o.X,
			Y:         o.Y,
			Width:     o.W,
			Height:    o.H,
			ClassID:   o.ClassID,
			ClassName: a.ClassName(o.ClassID),
			Score:     o.Score,
		}
		detections = append(detections, d)
		if o.ClassID >= 0 && o.ClassID < len(a.labels) {
			counts[d.ClassName]++
		}
	}
	return detections, counts
}

// Batch builds the detection-channel payload for a frame of the given size.
func (a *Aggregator) Batch(detections []Detection, width, height int, now time.Time) Batch {
	if detections == nil {
		detections = []Detection{}
	}
	return Batch{
		TimestampMs: now.UnixMilli(),
		Detections:  detections,
		FrameWidth:  width,
		FrameHeight: height,
	}
}

// Summary formats counts in label order for diagnostics.
func (a *Aggregator) Summary(c Counts) string {
	return c.format(a.labels)
}
