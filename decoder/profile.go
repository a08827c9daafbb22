/*
DESCRIPTION
  profile.go provides the decoder profiles and their mapping to codecs and
  engine kinds.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package decoder

import (
	"fmt"
	"strings"

	"github.com/ausocean/cedar/codec/codecutil"
	"github.com/ausocean/cedar/device"
	"github.com/pkg/errors"
)

// Profile is a decoder profile.
type Profile int

// Decoder profiles.
const (
	ProfileMPEG1 Profile = iota
	ProfileMPEG2Simple
	ProfileMPEG2Main
	ProfileMPEG4PartSP
	ProfileMPEG4PartASP
	ProfileDivX3QMobile
	ProfileDivX3Mobile
	ProfileDivX3HomeTheater
	ProfileDivX3HD720P
	ProfileDivX4QMobile
	ProfileDivX4Mobile
	ProfileDivX4HomeTheater
	ProfileDivX4HD1080P
	ProfileDivX5QMobile
	ProfileDivX5Mobile
	ProfileDivX5HomeTheater
	ProfileDivX5HD1080P
	ProfileH264Baseline
	ProfileH264Main
	ProfileH264High
	ProfileHEVCMain
	numProfiles
)

var profileNames = [...]string{
	"MPEG1",
	"MPEG2_SIMPLE",
	"MPEG2_MAIN",
	"MPEG4_PART2_SP",
	"MPEG4_PART2_ASP",
	"DIVX3_QMOBILE",
	"DIVX3_MOBILE",
	"DIVX3_HOME_THEATER",
	"DIVX3_HD_720P",
	"DIVX4_QMOBILE",
	"DIVX4_MOBILE",
	"DIVX4_HOME_THEATER",
	"DIVX4_HD_1080P",
	"DIVX5_QMOBILE",
	"DIVX5_MOBILE",
	"DIVX5_HOME_THEATER",
	"DIVX5_HD_1080P",
	"H264_BASELINE",
	"H264_MAIN",
	"H264_HIGH",
	"HEVC_MAIN",
}

func (p Profile) String() string {
	if p >= 0 && p < numProfiles {
		return profileNames[p]
	}
	return fmt.Sprintf("profile(%d)", int(p))
}

// ParseProfile returns the profile named s, ignoring case.
func ParseProfile(s string) (Profile, error) {
	for i, n := range profileNames {
		if strings.EqualFold(n, s) {
			return Profile(i), nil
		}
	}
	return 0, errors.Errorf("unknown profile %q", s)
}

// Codec returns the codecutil name of the bitstream format decoded by p, or
// the empty string for an unknown profile.
func (p Profile) Codec() string {
	switch {
	case p == ProfileMPEG1:
		return codecutil.MPEG1
	case p == ProfileMPEG2Simple, p == ProfileMPEG2Main:
		return codecutil.MPEG2
	case p == ProfileMPEG4PartSP, p == ProfileMPEG4PartASP:
		return codecutil.MPEG4
	case p >= ProfileDivX3QMobile && p <= ProfileDivX3HD720P:
		return codecutil.DivX3
	case p >= ProfileDivX4QMobile && p <= ProfileDivX5HD1080P:
		return codecutil.MPEG4
	case p >= ProfileH264Baseline && p <= ProfileH264High:
		return codecutil.H264
	case p == ProfileHEVCMain:
		return codecutil.H265
	default:
		return ""
	}
}

// Supported returns true if p has a decode path.
func (p Profile) Supported() bool { return codecutil.Accelerated(p.Codec()) }

// Kind returns the engine sub-unit that decodes p.
func (p Profile) Kind() device.Kind {
	switch p.Codec() {
	case codecutil.H264:
		return device.KindH264
	case codecutil.H265:
		return device.KindHEVC
	default:
		return device.KindMPEG
	}
}
