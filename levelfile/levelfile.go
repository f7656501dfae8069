// Package levelfile reads level descriptions and builds the plane graphs
// the hint search runs on.
package levelfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flickyourselfon/railhint/rail"
)

var (
	ErrUnknownPlane    = errors.New("unknown plane")
	ErrDuplicatePlane  = errors.New("duplicate plane")
	ErrDuplicateRail   = errors.New("duplicate rail")
	ErrDuplicateSwitch = errors.New("duplicate switch")
	ErrBadRail         = errors.New("bad rail")
	ErrBadSwitch       = errors.New("bad switch")
	ErrNoLevels        = errors.New("no levels")
)

// Point is an x, y tile coordinate, written as a two element list.
type Point [2]int

type File struct {
	Levels []LevelSpec `yaml:"levels"`
}

type LevelSpec struct {
	N         int    `yaml:"n"`
	StartTile int    `yaml:"start-tile,omitempty"`
	Start     string `yaml:"start"`
	// Victory names the plane that wins the level. It may be empty.
	Victory     string           `yaml:"victory,omitempty"`
	Planes      []PlaneSpec      `yaml:"planes"`
	Rails       []RailSpec       `yaml:"rails,omitempty"`
	Switches    []SwitchSpec     `yaml:"switches,omitempty"`
	Reset       *ResetSpec       `yaml:"reset,omitempty"`
	Connections []ConnectionSpec `yaml:"connections,omitempty"`
}

type PlaneSpec struct {
	Name  string  `yaml:"name"`
	Tiles []Point `yaml:"tiles,omitempty"`
}

// RailSpec describes a rail between two planes. Riding it is only possible
// while its tile offset is 0.
type RailSpec struct {
	ID               int16   `yaml:"id"`
	Color            string  `yaml:"color"`
	Groups           []int8  `yaml:"groups"`
	InitialOffset    int8    `yaml:"initial-offset"`
	InitialDirection int8    `yaml:"initial-direction,omitempty"`
	MaxOffset        int8    `yaml:"max-offset"`
	Magnitude        int8    `yaml:"magnitude,omitempty"`
	Segments         []Point `yaml:"segments,omitempty"`
	From             string  `yaml:"from"`
	To               string  `yaml:"to"`
}

// SwitchSpec is a switch standing on a plane. Group 0 is the level's radio
// tower switch.
type SwitchSpec struct {
	ID    int16  `yaml:"id"`
	Color string `yaml:"color"`
	Group int8   `yaml:"group"`
	Plane string `yaml:"plane"`
	At    Point  `yaml:"at"`
}

type ResetSpec struct {
	At Point `yaml:"at"`
}

// ConnectionSpec is an ungated hop between planes, such as a step down.
type ConnectionSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Both bool   `yaml:"both,omitempty"`
}

func Parse(r io.Reader) (*File, error) {
	f := &File{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("parsing level file: %w", err)
	}
	if len(f.Levels) == 0 {
		return nil, ErrNoLevels
	}
	return f, nil
}

func Load(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	f, err := Parse(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (f *File) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

func (rs *RailSpec) toRail() (*rail.Rail, error) {
	color, err := rail.ParseColor(rs.Color)
	if err != nil {
		return nil, fmt.Errorf("rail %d: %w", rs.ID, err)
	}
	if color == rail.NoColor {
		return nil, fmt.Errorf("%w: rail %d has no color", ErrBadRail, rs.ID)
	}
	if rs.MaxOffset < 0 || rs.MaxOffset > 7 {
		return nil, fmt.Errorf("%w: rail %d max offset %d", ErrBadRail, rs.ID, rs.MaxOffset)
	}
	if rs.InitialOffset < 0 || rs.InitialOffset > rs.MaxOffset {
		return nil, fmt.Errorf("%w: rail %d initial offset %d", ErrBadRail, rs.ID, rs.InitialOffset)
	}
	if rs.InitialDirection != 0 && rs.InitialDirection != 1 && rs.InitialDirection != -1 {
		return nil, fmt.Errorf("%w: rail %d direction %d", ErrBadRail, rs.ID, rs.InitialDirection)
	}
	if rs.From == "" || rs.To == "" || rs.From == rs.To {
		return nil, fmt.Errorf("%w: rail %d must join two planes", ErrBadRail, rs.ID)
	}
	if rs.Magnitude < 0 || rs.Magnitude > rs.MaxOffset {
		return nil, fmt.Errorf("%w: rail %d magnitude %d", ErrBadRail, rs.ID, rs.Magnitude)
	}
	magnitude := rs.Magnitude
	if magnitude == 0 {
		magnitude = 1
	}
	r := &rail.Rail{
		ID:                       rs.ID,
		Color:                    color,
		Groups:                   rs.Groups,
		InitialTileOffset:        rs.InitialOffset,
		InitialMovementDirection: rs.InitialDirection,
		MaxTileOffset:            rs.MaxOffset,
		MovementMagnitude:        magnitude,
	}
	if err := r.CheckMovement(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRail, err)
	}
	for _, s := range rs.Segments {
		r.Segments = append(r.Segments, rail.Segment{X: s[0], Y: s[1]})
	}
	return r, nil
}
