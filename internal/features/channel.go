// Package features computes per-channel statistical and spectral descriptors
// from rows of interleaved IMU and speed samples.
//
// A raw row interleaves seven channels (accx, accy, accz, gyrox, gyroy, gyroz,
// speed). Deinterleave recovers each channel by taking every seventh token,
// Sanitize turns the tokens into a cleaned numeric sequence, and Extract
// computes the 23 descriptors listed in Feature order.
package features

import "fmt"

// Channel identifies one measurement stream within an interleaved row. The
// numeric value is the stride offset of the channel's first sample.
type Channel int

const (
	AccX Channel = iota
	AccY
	AccZ
	GyroX
	GyroY
	GyroZ
	Speed
)

// NumChannels is the interleave stride of a raw row.
const NumChannels = 7

var channelNames = [NumChannels]string{"accx", "accy", "accz", "gyrox", "gyroy", "gyroz", "speed"}

// Channels lists every channel in output order.
var Channels = [NumChannels]Channel{AccX, AccY, AccZ, GyroX, GyroY, GyroZ, Speed}

func (c Channel) String() string {
	if c < 0 || int(c) >= NumChannels {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Strided returns every NumChannels-th token of row starting at offset.
// The result is empty when the row is shorter than offset+1.
func Strided(row []string, offset int) []string {
	if offset < 0 || offset >= len(row) {
		return nil
	}
	out := make([]string, 0, (len(row)-offset+NumChannels-1)/NumChannels)
	for i := offset; i < len(row); i += NumChannels {
		out = append(out, row[i])
	}
	return out
}

// Deinterleave splits a raw row into its seven channel sub-sequences.
func Deinterleave(row []string) [NumChannels][]string {
	var out [NumChannels][]string
	for _, c := range Channels {
		out[c] = Strided(row, int(c))
	}
	return out
}
