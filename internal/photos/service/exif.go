package service

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// gpsFromEXIF reads the capture position embedded by the camera, if any.
func gpsFromEXIF(data []byte) (lat, lng float64, ok bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	lat, lng, err = x.LatLong()
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
