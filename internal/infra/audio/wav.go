package audio

import (
	"bytes"
	"encoding/binary"
)

// Utterance is one captured reply. Sources fill Audio, Text or both; Text
// wins when present.
type Utterance struct {
	Audio []byte
	Text  string
}

func (u Utterance) Empty() bool {
	return len(u.Audio) == 0 && u.Text == ""
}

const DefaultSilenceThreshold = int16(500)

// IsSilent reports whether no sample exceeds threshold in magnitude.
func IsSilent(samples []int16, threshold int16) bool {
	for _, s := range samples {
		if s > threshold || s < -threshold {
			return false
		}
	}
	return true
}

// SamplesToWav encodes mono 16-bit PCM as a WAV file.
func SamplesToWav(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, int16(2))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}
