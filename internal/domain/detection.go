package domain

// BoundingBox is in pixel coordinates, (X1,Y1) top-left and (X2,Y2) bottom-right.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type Detection struct {
	Name        string       `json:"name"`
	Probability float64      `json:"probability"`
	Box         *BoundingBox `json:"box,omitempty"`
}

func CountNamed(detections []Detection, name string) int {
	n := 0
	for _, d := range detections {
		if d.Name == name {
			n++
		}
	}
	return n
}
