/*
DESCRIPTION
  sprite.go provides sprite trajectory parsing and the global motion
  compensation parameter solver used to program the engine for S-VOPs.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mpeg4

import "math/bits"

// maxDMVLength is the longest sprite dmv code, see table 7-28 of
// ISO/IEC 14496-2.
const maxDMVLength = 14

// GMC holds the global motion compensation parameters derived from a sprite
// trajectory. The Ref, VirtualRef2, Shift, SOCX, SOCY, MV5 and MV6 fields are
// the values programmed into the engine sprite registers.
type GMC struct {
	// Trajectory holds the decoded warping point differentials.
	Trajectory [4][2]int32

	// EffectivePoints is the number of warping points remaining after
	// trailing zero differentials are removed.
	EffectivePoints int

	// RealPoints is 1 if the transform reduces to a translation, otherwise
	// the number of warping points signalled by the VOL.
	RealPoints int

	Ref         [3][2]int32
	VirtualRef  [2][2]int32
	VirtualRef2 [2][2]int32
	Offset      [2][2]int32
	Delta       [2][2]int32
	Shift       [2]int32
	SOCX        int32
	SOCY        int32
	Mask2       int32

	MV5Upper, MV5Lower uint32
	MV6Upper, MV6Lower uint32
}

// readSpriteTrajectory reads points warping point differentials.
func readSpriteTrajectory(r *fieldReader, points int) [4][2]int32 {
	var d [4][2]int32
	for i := 0; i < points && i < 4; i++ {
		for c := 0; c < 2; c++ {
			if l := readDMVLength(r); l != 0 {
				d[i][c] = readDMVCode(r, l)
			}
			if c == 0 {
				r.marker("warping_mv_code_du")
			} else {
				r.marker("warping_mv_code_dv")
			}
		}
	}
	return d
}

// readDMVLength reads a dmv_length code, returning the number of bits in the
// following dmv_code.
func readDMVLength(r *fieldReader) int {
	switch v := r.readBits(2); v {
	case 0:
		return 0
	case 1:
		return int(r.readBits(1)) + 1
	case 2:
		return int(r.readBits(1)) + 3
	default:
		l := 5
		for l < maxDMVLength && r.readFlag() {
			l++
		}
		return l
	}
}

// readDMVCode reads an n bit dmv_code. Codes with a zero leading bit are
// negative.
func readDMVCode(r *fieldReader, n int) int32 {
	v := int32(r.readBits(n))
	if v&(1<<uint(n-1)) == 0 {
		v = v - (1 << uint(n)) + 1
	}
	return v
}

// SolveGMC derives the global motion compensation parameters for a
// rectangular VOL of the given dimensions from the trajectory d, where points
// and accuracy are the VOL sprite_warping_points and sprite_warping_accuracy.
// Intermediate arithmetic is carried out in 64 bits.
func SolveGMC(d [4][2]int32, points, accuracy, width, height int) GMC {
	g := GMC{Trajectory: d, RealPoints: points}
	if width <= 0 || height <= 0 {
		return g
	}

	var (
		a   = int64(2) << uint(accuracy)
		rho = int64(3 - accuracy)
		r   = 16 / a
		w   = int64(width)
		h   = int64(height)
	)
	vr := [3][2]int64{{0, 0}, {w, 0}, {0, h}}

	g.EffectivePoints = points
	for g.EffectivePoints > 0 {
		p := d[g.EffectivePoints-1]
		if p[0] != 0 || p[1] != 0 {
			break
		}
		g.EffectivePoints--
	}

	var alpha, beta int64
	for 1<<uint(alpha) < w {
		alpha++
	}
	for 1<<uint(beta) < h {
		beta++
	}
	w2 := int64(1) << uint(alpha)
	h2 := int64(1) << uint(beta)

	var sr [3][2]int64
	for c := 0; c < 2; c++ {
		d0 := int64(d[0][c])
		sr[0][c] = (a >> 1) * (2*vr[0][c] + d0)
		sr[1][c] = (a >> 1) * (2*vr[1][c] + d0 + int64(d[1][c]))
		sr[2][c] = (a >> 1) * (2*vr[2][c] + d0 + int64(d[2][c]))
	}
	for i := range sr {
		g.Ref[i] = [2]int32{int32(sr[i][0]), int32(sr[i][1])}
	}

	// Virtual points at w2 and h2 allow shifts in place of divides.
	var v [2][2]int64
	v[0][0] = 16*(vr[0][0]+w2) + roundedDiv((w-w2)*(r*sr[0][0]-16*vr[0][0])+w2*(r*sr[1][0]-16*vr[1][0]), w)
	v[0][1] = 16*vr[0][1] + roundedDiv((w-w2)*(r*sr[0][1]-16*vr[0][1])+w2*(r*sr[1][1]-16*vr[1][1]), w)
	v[1][0] = 16*vr[0][0] + roundedDiv((h-h2)*(r*sr[0][0]-16*vr[0][0])+h2*(r*sr[2][0]-16*vr[2][0]), h)
	v[1][1] = 16*(vr[0][1]+h2) + roundedDiv((h-h2)*(r*sr[0][1]-16*vr[0][1])+h2*(r*sr[2][1]-16*vr[2][1]), h)

	whr := w2 * h2 * r
	a001 := h2 * (-r*sr[0][0] + v[0][0])
	a002 := w2 * (-r*sr[0][0] + v[1][0])
	a011 := h2 * (-r*sr[0][1] + v[0][1])
	a012 := w2 * (-r*sr[0][1] + v[1][1])

	g.VirtualRef[0][0] = int32(signedRoundedDiv(a001+a002, whr) + sr[0][0])
	g.VirtualRef[0][1] = int32(signedRoundedDiv(a011+a012, whr) + sr[0][1])
	g.VirtualRef[1][0] = int32(signedRoundedDiv(
		w2*(-r*sr[0][0]+v[0][0])+h2*(-r*sr[0][0]+v[1][0])+2*whr*sr[0][0]-16*w2*h2, 4*whr))
	g.VirtualRef[1][1] = int32(signedRoundedDiv(
		w2*(-r*sr[0][1]+v[0][1])+h2*(-r*sr[0][1]+v[1][1])+2*whr*sr[0][1]-16*w2*h2, 4*whr))

	// Normalise the luma increments by their common power of two.
	runs := log2Ceil(whr)
	nsave := a002 | a011 | a001 | a012
	if tz := int64(bits.TrailingZeros32(uint32(nsave) | 1<<uint(runs))); tz < runs {
		runs -= tz
	} else {
		runs = 0
	}

	runs2 := log2Ceil(r * h2 * 4 * w2)
	mask2 := int64(1) << uint(runs2-1)
	lfoo3 := h2 * (16 * (vr[0][0] + w2))
	lfoo4 := r * (h2 * 2 * w2)
	sub1 := lfoo4*sr[0][0] - lfoo3 + lfoo4
	lfoo6 := lfoo4*(r*sr[0][1]-16*vr[0][1]) - lfoo3 + lfoo4

	s001, s002, s011, s012 := a001, a002, a011, a012
	testmask := uint64(lfoo6 | nsave)
	for runs2 > 0 && testmask&1 == 0 {
		s002 >>= 1
		s011 >>= 1
		s001 >>= 1
		s012 >>= 1
		lfoo6 >>= 1
		lfoo3 >>= 1
		sub1 >>= 1
		mask2 >>= 1
		mask4 := uint32(s002 | s011 | s001 | s012)
		testmask = uint64(lfoo6 | sub1 | mask2 | int64(mask4))
		runs2--
	}
	g.VirtualRef2 = [2][2]int32{{int32(s001), int32(s002)}, {int32(s011), int32(s012)}}
	g.SOCX = int32(sub1)
	g.SOCY = int32(lfoo6)
	g.Mask2 = int32(mask2)

	var (
		off   [2][2]int64
		delta = [2][2]int64{{a, 0}, {0, a}}
		shift [2]int64
	)
	switch points {
	case 0:
	case 1:
		off[0][0] = sr[0][0] - a*vr[0][0]
		off[0][1] = sr[0][1] - a*vr[0][1]
		off[1][0] = ((sr[0][0] >> 1) | (sr[0][0] & 1)) - a*(vr[0][0]/2)
		off[1][1] = ((sr[0][1] >> 1) | (sr[0][1] & 1)) - a*(vr[0][1]/2)
	case 2:
		ar := uint(alpha + rho)
		off[0][0] = sr[0][0]<<ar + (-r*sr[0][0]+v[0][0])*(-vr[0][0]) + (r*sr[0][1]-v[0][1])*(-vr[0][1]) + 1<<(ar-1)
		off[0][1] = sr[0][1]<<ar + (-r*sr[0][1]+v[0][1])*(-vr[0][0]) + (-r*sr[0][0]+v[0][0])*(-vr[0][1]) + 1<<(ar-1)
		off[1][0] = (-r*sr[0][0]+v[0][0])*(-2*vr[0][0]+1) + (r*sr[0][1]-v[0][1])*(-2*vr[0][1]+1) + 2*w2*r*sr[0][0] - 16*w2 + 1<<(ar+1)
		off[1][1] = (-r*sr[0][1]+v[0][1])*(-2*vr[0][0]+1) + (-r*sr[0][0]+v[0][0])*(-2*vr[0][1]+1) + 2*w2*r*sr[0][1] - 16*w2 + 1<<(ar+1)
		delta = [2][2]int64{
			{-r*sr[0][0] + v[0][0], r*sr[0][1] - v[0][1]},
			{-r*sr[0][1] + v[0][1], -r*sr[0][0] + v[0][0]},
		}
		shift = [2]int64{alpha + rho, alpha + rho + 2}
	case 3:
		minab := alpha
		if beta < minab {
			minab = beta
		}
		w3 := w2 >> uint(minab)
		h3 := h2 >> uint(minab)
		s := uint(alpha + beta + rho - minab)
		off[0][0] = sr[0][0]<<s + (-r*sr[0][0]+v[0][0])*h3*(-vr[0][0]) + (-r*sr[0][0]+v[1][0])*w3*(-vr[0][1]) + 1<<(s-1)
		off[0][1] = sr[0][1]<<s + (-r*sr[0][1]+v[0][1])*h3*(-vr[0][0]) + (-r*sr[0][1]+v[1][1])*w3*(-vr[0][1]) + 1<<(s-1)
		off[1][0] = (-r*sr[0][0]+v[0][0])*h3*(-2*vr[0][0]+1) + (-r*sr[0][0]+v[1][0])*w3*(-2*vr[0][1]+1) + 2*w2*h3*r*sr[0][0] - 16*w2*h3 + 1<<(s+1)
		off[1][1] = (-r*sr[0][1]+v[0][1])*h3*(-2*vr[0][0]+1) + (-r*sr[0][1]+v[1][1])*w3*(-2*vr[0][1]+1) + 2*w2*h3*r*sr[0][1] - 16*w2*h3 + 1<<(s+1)
		delta = [2][2]int64{
			{(-r*sr[0][0] + v[0][0]) * h3, (-r*sr[0][0] + v[1][0]) * w3},
			{(-r*sr[0][1] + v[0][1]) * h3, (-r*sr[0][1] + v[1][1]) * w3},
		}
		shift = [2]int64{runs, runs2}

		g.MV5Upper = uint32(sr[0][0]) & 0x7fff
		g.MV5Lower = uint32(sr[0][1]) & 0x7fff
		// MV6 is formed from the 32 bit SOC register values. Truncation only
		// moves bits at or above 32-runs2+rho, and runs2 never exceeds
		// rho+max(alpha,beta)+2 after normalisation, so the 15 bit field is
		// unaffected for any legal picture size.
		g.MV6Upper = uint32((((int64(g.SOCX) + s001 + s002) >> uint(runs2)) << uint(rho)) & 0x7fff)
		g.MV6Lower = uint32((((int64(g.SOCY) + s011 + s012) >> uint(runs2)) << uint(rho)) & 0x7fff)
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			g.Offset[i][j] = int32(off[i][j])
			g.Delta[i][j] = int32(delta[i][j])
		}
		g.Shift[i] = int32(shift[i])
	}

	if delta[0][0] == a<<uint(shift[0]) && delta[0][1] == 0 && delta[1][0] == 0 && delta[1][1] == a<<uint(shift[0]) {
		g.RealPoints = 1
	}
	return g
}

// roundedDiv divides a by b rounding half away from zero.
func roundedDiv(a, b int64) int64 {
	if a > 0 {
		return (a + b>>1) / b
	}
	return (a - b>>1) / b
}

// signedRoundedDiv divides a by b, adding half of b before truncation.
func signedRoundedDiv(a, b int64) int64 {
	return (a + b>>1) / b
}

// log2Ceil returns the smallest l such that 1<<l >= n.
func log2Ceil(n int64) int64 {
	if n <= 1 {
		return 0
	}
	return int64(64 - bits.LeadingZeros64(uint64(n-1)))
}
