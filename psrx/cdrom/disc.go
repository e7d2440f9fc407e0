package cdrom

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kestrel-dev/go-psrx/psrx/perr"
)

// TrackType is the data format of a single CD-ROM track.
type TrackType int

const (
	Mode1_2352 TrackType = iota
	Mode2_2352
	Audio
)

// MSF is a Minute:Second:Frame disc position (75 frames/second).
type MSF struct {
	Minute, Second, Frame uint8
}

// Track describes one track's position and extent within the .bin file.
type Track struct {
	Number       uint8
	Type         TrackType
	StartMSF     MSF
	LengthSectors uint32
	FileOffset   uint64
}

const bytesPerSector = 2352

// DiscImage is a loaded .cue/.bin disc, ready for sector reads by MSF
// position.
type DiscImage struct {
	Tracks []Track
	data   []byte
}

// LoadDisc parses a .cue file and loads its companion .bin file.
func LoadDisc(cuePath string) (*DiscImage, error) {
	cueData, err := os.ReadFile(cuePath)
	if err != nil {
		return nil, &perr.CdRomError{Kind: perr.CdRomDiscLoadError, Msg: err.Error()}
	}

	binPath, err := binPathFromCue(cuePath, string(cueData))
	if err != nil {
		return nil, err
	}

	tracks, err := parseCue(string(cueData))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		return nil, &perr.CdRomError{Kind: perr.CdRomDiscLoadError, Msg: "failed to read bin file: " + err.Error()}
	}

	calculateTrackLengths(tracks, len(data))

	return &DiscImage{Tracks: tracks, data: data}, nil
}

func binPathFromCue(cuePath, cueData string) (string, error) {
	for _, line := range strings.Split(cueData, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "FILE") {
			continue
		}
		start := strings.Index(line, `"`)
		if start < 0 {
			continue
		}
		rest := line[start+1:]
		end := strings.Index(rest, `"`)
		if end < 0 {
			continue
		}
		filename := rest[:end]
		return filepath.Join(filepath.Dir(cuePath), filename), nil
	}
	return "", &perr.CdRomError{Kind: perr.CdRomDiscLoadError, Msg: "no FILE directive found in .cue file"}
}

func parseCue(cueData string) ([]Track, error) {
	var tracks []Track
	var current *Track

	for _, raw := range strings.Split(cueData, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "TRACK"):
			if current != nil {
				tracks = append(tracks, *current)
			}
			parts := strings.Fields(line)
			num := uint8(1)
			if len(parts) > 1 {
				if n, err := strconv.Atoi(parts[1]); err == nil {
					num = uint8(n)
				}
			}
			typeStr := "MODE2/2352"
			if len(parts) > 2 {
				typeStr = parts[2]
			}
			current = &Track{Number: num, Type: parseTrackType(typeStr)}
		case strings.HasPrefix(line, "INDEX 01"):
			if current == nil {
				continue
			}
			parts := strings.Fields(line)
			if len(parts) < 3 {
				continue
			}
			msf, err := parseMSF(parts[2])
			if err != nil {
				return nil, err
			}
			current.StartMSF = msf
			current.FileOffset = uint64(msfToSector(msf)) * bytesPerSector
		}
	}
	if current != nil {
		tracks = append(tracks, *current)
	}
	return tracks, nil
}

func parseMSF(s string) (MSF, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return MSF{}, &perr.CdRomError{Kind: perr.CdRomDiscLoadError, Msg: "invalid MSF format: " + s}
	}
	m, err1 := strconv.Atoi(parts[0])
	sec, err2 := strconv.Atoi(parts[1])
	f, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return MSF{}, &perr.CdRomError{Kind: perr.CdRomDiscLoadError, Msg: "invalid MSF format: " + s}
	}
	return MSF{Minute: uint8(m), Second: uint8(sec), Frame: uint8(f)}, nil
}

func parseTrackType(s string) TrackType {
	switch s {
	case "MODE1/2352":
		return Mode1_2352
	case "AUDIO":
		return Audio
	default:
		return Mode2_2352
	}
}

func calculateTrackLengths(tracks []Track, fileSize int) {
	for i := range tracks {
		if i+1 < len(tracks) {
			tracks[i].LengthSectors = uint32((tracks[i+1].FileOffset - tracks[i].FileOffset) / bytesPerSector)
		} else {
			tracks[i].LengthSectors = uint32((uint64(fileSize) - tracks[i].FileOffset) / bytesPerSector)
		}
	}
}

// ReadSector returns the raw 2352-byte block at the given MSF position.
func (d *DiscImage) ReadSector(pos MSF) ([]byte, error) {
	offset := msfToSector(pos) * bytesPerSector
	if offset < 0 || offset+bytesPerSector > len(d.data) {
		return nil, &perr.CdRomError{Kind: perr.CdRomInvalidSector, Msg: "sector out of range"}
	}
	return d.data[offset : offset+bytesPerSector], nil
}

// msfToSector converts an MSF position to a 0-based sector number,
// accounting for the standard 2-second (150-frame) pregap.
func msfToSector(pos MSF) int {
	total := int(pos.Minute)*60*75 + int(pos.Second)*75 + int(pos.Frame)
	if total < 150 {
		return 0
	}
	return total - 150
}

// TrackCount returns the number of tracks on the disc.
func (d *DiscImage) TrackCount() int { return len(d.Tracks) }

// GetTrack looks up a track by its 1-based track number.
func (d *DiscImage) GetTrack(number uint8) (Track, bool) {
	for _, t := range d.Tracks {
		if t.Number == number {
			return t, true
		}
	}
	return Track{}, false
}
