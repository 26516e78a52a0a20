package postprocess

import (
	"fmt"
	"sort"

	"github.com/lumina-vision/go-yolotrack"
)

// NMSIndices implements greedy Non-Maximum Suppression (NMS).  Boxes are
// visited in descending score order, ties keeping their original index
// order.  Each visited box is kept and every remaining box whose IoU with it
// is greater than or equal to iouThreshold is suppressed.  The indices of the
// kept boxes are returned in the order they were kept.
//
// scores must have the same length as boxes.
func NMSIndices(boxes []yolotrack.Box, scores []float32, iouThreshold float32) []int {

	if len(boxes) != len(scores) {
		panic(fmt.Sprintf("nms: %d boxes but %d scores", len(boxes), len(scores)))
	}

	if len(boxes) == 0 {
		return nil
	}

	order := make([]int, len(boxes))

	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	suppressed := make([]bool, len(boxes))
	keep := make([]int, 0, len(boxes))

	for i, n := range order {

		if suppressed[n] {
			continue
		}

		keep = append(keep, n)

		for _, m := range order[i+1:] {

			if suppressed[m] {
				continue
			}

			if yolotrack.IoU(boxes[n], boxes[m]) >= iouThreshold {
				suppressed[m] = true
			}
		}
	}

	return keep
}

// NMS runs NMSIndices across all detections regardless of their class, so a
// box of one class can suppress an overlapping box of another class
func NMS(dets []DetectResult, iouThreshold float32) []DetectResult {

	keep := NMSIndices(boxes(dets), scores(dets), iouThreshold)

	return pick(dets, keep)
}

// NMSByClass runs NMSIndices separately for each class id.  The kept
// detections of all classes are returned in descending score order.
func NMSByClass(dets []DetectResult, iouThreshold float32) []DetectResult {

	// create a unique set of ClassID in order of first appearance
	var classes []int
	members := make(map[int][]int)

	for i, d := range dets {
		if _, exists := members[d.Class]; !exists {
			classes = append(classes, d.Class)
		}
		members[d.Class] = append(members[d.Class], i)
	}

	var keep []int

	for _, c := range classes {
		idx := members[c]
		subset := pick(dets, idx)

		for _, k := range NMSIndices(boxes(subset), scores(subset), iouThreshold) {
			keep = append(keep, idx[k])
		}
	}

	sort.SliceStable(keep, func(a, b int) bool {
		da, db := dets[keep[a]], dets[keep[b]]
		if da.Probability != db.Probability {
			return da.Probability > db.Probability
		}
		return keep[a] < keep[b]
	})

	return pick(dets, keep)
}

// pick returns the detections at the given indices
func pick(dets []DetectResult, idx []int) []DetectResult {

	if len(idx) == 0 {
		return nil
	}

	out := make([]DetectResult, len(idx))

	for i, n := range idx {
		out[i] = dets[n]
	}

	return out
}
