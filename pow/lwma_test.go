// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow_test

import (
	"testing"

	"github.com/blinklabs-io/retarget/pow"
	"github.com/holiman/uint256"
)

const testRootTime = 1394325760

// testParams returns main network parameters with low activation
// heights
func testParams(window int64) pow.Params {
	params := pow.MainNetParams
	params.LWMAHeight = 100
	params.LWMAFixHeight = 150
	params.ASERTHeight = 200
	params.LWMAWindow = window
	return params
}

func checkValidBits(t *testing.T, bits uint32, params *pow.Params) *uint256.Int {
	t.Helper()
	target, negative, overflow := pow.DecodeCompact(bits)
	if bits == 0 || negative || overflow || target.IsZero() {
		t.Fatalf("invalid bits 0x%08x", bits)
	}
	if target.Gt(params.PowLimit) {
		t.Fatalf("bits 0x%08x exceed the pow limit", bits)
	}
	return target
}

func TestLWMAColdStart(t *testing.T) {
	params := testParams(45)
	// One block before activation, then two LWMA blocks
	chain := buildChain(params.LWMAHeight-1, 3, testRootTime, params.TargetSpacing, 0x1e0ffff0)
	tail := chain.Tip()
	next := tail.Timestamp() + params.TargetSpacing
	for _, retarget := range []func(*pow.ChainNode, int64, *pow.Params) uint32{
		pow.NextTargetLWMA,
		pow.NextTargetLWMAv2,
	} {
		if got := retarget(tail, next, &params); got != tail.Bits() {
			t.Fatalf("cold start: got 0x%08x, want 0x%08x", got, tail.Bits())
		}
		// A single block of history also keeps the tail difficulty
		single := chain.NodeAt(params.LWMAHeight)
		if got := retarget(single, next, &params); got != single.Bits() {
			t.Fatalf("single block: got 0x%08x, want 0x%08x", got, single.Bits())
		}
	}

	// The third block gives enough history for an average
	chain.Append(tail.Timestamp()+params.TargetSpacing, 0x1e0ffff0)
	tail = chain.Tip()
	for _, retarget := range []func(*pow.ChainNode, int64, *pow.Params) uint32{
		pow.NextTargetLWMA,
		pow.NextTargetLWMAv2,
	} {
		got := retarget(tail, tail.Timestamp()+params.TargetSpacing, &params)
		checkValidBits(t, got, &params)
	}
}

func TestLWMAOnSchedule(t *testing.T) {
	params := testParams(45)
	chain := buildChain(params.LWMAHeight, 50, testRootTime, params.TargetSpacing, 0x1c0ac141)
	tail := chain.Tip()
	if got := pow.NextTargetLWMA(tail, tail.Timestamp(), &params); got != 0x1c0ac141 {
		t.Fatalf("LWMA: got 0x%08x, want 0x1c0ac141", got)
	}
	if got := pow.NextTargetLWMAv2(tail, tail.Timestamp(), &params); got != 0x1c0ac141 {
		t.Fatalf("LWMAv2: got 0x%08x, want 0x1c0ac141", got)
	}
}

func TestLWMADirection(t *testing.T) {
	params := testParams(45)
	base := pow.CompactToTarget(0x1c0ac141)

	// Slow blocks lower the difficulty
	chain := buildChain(params.LWMAHeight, 50, testRootTime, params.TargetSpacing*2, 0x1c0ac141)
	got := pow.CompactToTarget(pow.NextTargetLWMA(chain.Tip(), 0, &params))
	if !got.Gt(base) {
		t.Fatalf("slow blocks: target %s should exceed %s", got.Hex(), base.Hex())
	}

	// Fast blocks raise it
	chain = buildChain(params.LWMAHeight, 50, testRootTime, params.TargetSpacing/2, 0x1c0ac141)
	got = pow.CompactToTarget(pow.NextTargetLWMA(chain.Tip(), 0, &params))
	if !got.Lt(base) {
		t.Fatalf("fast blocks: target %s should be below %s", got.Hex(), base.Hex())
	}
}

func TestLWMASolvetimeBounds(t *testing.T) {
	params := testParams(10)
	// Every other block has an extreme solvetime (10x target)
	chain := pow.NewChain(params.LWMAHeight, testRootTime, 0x1e0ffff0)
	for i := 1; i < 15; i++ {
		spacing := params.TargetSpacing
		if i%2 == 0 {
			spacing *= 10
		}
		chain.Append(chain.Tip().Timestamp()+spacing, 0x1e0ffff0)
	}
	tail := chain.Tip()
	got := pow.NextTargetLWMA(tail, tail.Timestamp()+params.TargetSpacing, &params)
	checkValidBits(t, got, &params)
}

func TestLWMANonMonotonicTimestamps(t *testing.T) {
	params := testParams(10)
	// Alternating timestamps that step backward clamp to 1 second
	chain := pow.NewChain(params.LWMAHeight, testRootTime, 0x1c0ac141)
	for i := 1; i < 15; i++ {
		ts := chain.Tip().Timestamp() + 3*params.TargetSpacing
		if i%2 == 0 {
			ts = chain.Tip().Timestamp() - 2*params.TargetSpacing
		}
		chain.Append(ts, 0x1c0ac141)
	}
	tail := chain.Tip()
	got := pow.NextTargetLWMA(tail, tail.Timestamp(), &params)
	target := checkValidBits(t, got, &params)
	// Clamped solvetimes never exceed 10x either way
	base := pow.CompactToTarget(0x1c0ac141)
	lower := new(uint256.Int).Div(base, uint256.NewInt(10))
	upper := new(uint256.Int).Mul(base, uint256.NewInt(10))
	if target.Lt(lower) || target.Gt(upper) {
		t.Fatalf("target %s outside 10x bounds of %s", target.Hex(), base.Hex())
	}
}

func TestLWMACap(t *testing.T) {
	params := testParams(10)
	chain := buildChain(params.LWMAHeight, 15, testRootTime, 1, 0x1c0ac141)
	tail := chain.Tip()
	got := pow.CompactToTarget(pow.NextTargetLWMA(tail, tail.Timestamp()+1, &params))
	base := pow.CompactToTarget(0x1c0ac141)
	minAllowed := new(uint256.Int).Div(base, uint256.NewInt(10))
	// The encoding rounds down, but never by anywhere near another 10%
	floor := new(uint256.Int).Div(base, uint256.NewInt(11))
	if got.Gt(minAllowed) || got.Lt(floor) {
		t.Fatalf("target %s is not capped at %s", got.Hex(), minAllowed.Hex())
	}
}

func TestLWMAv2UsesWindowStartTarget(t *testing.T) {
	params := testParams(10)
	// The first 5 blocks have the base difficulty, the rest are 16x harder
	chain := pow.NewChain(params.LWMAFixHeight, testRootTime, 0x1e0ffff0)
	for i := 1; i < 15; i++ {
		bits := uint32(0x1e0ffff0)
		if i >= 5 {
			bits = 0x1d0ffff0
		}
		chain.Append(testRootTime+int64(i)*params.TargetSpacing, bits)
	}
	tail := chain.Tip()
	next := tail.Timestamp() + params.TargetSpacing

	got := pow.NextTargetLWMAv2(tail, next, &params)
	target := checkValidBits(t, got, &params)

	windowStartTarget := pow.CompactToTarget(0x1e0ffff0)
	recentTarget := pow.CompactToTarget(0x1d0ffff0)
	diffFromWindowStart := absDiff(target, windowStartTarget)
	diffFromRecent := absDiff(target, recentTarget)
	if !diffFromWindowStart.Lt(diffFromRecent) {
		t.Fatalf(
			"target %s should be closer to window start %s than to recent %s",
			target.Hex(),
			windowStartTarget.Hex(),
			recentTarget.Hex(),
		)
	}
	// On schedule, the window start target is kept exactly
	if got != 0x1e0ffff0 {
		t.Fatalf("got 0x%08x, want 0x1e0ffff0", got)
	}
	// The v1 rule follows the tail instead
	if v1 := pow.NextTargetLWMA(tail, next, &params); v1 != 0x1d0ffff0 {
		t.Fatalf("LWMA v1: got 0x%08x, want 0x1d0ffff0", v1)
	}
}

func TestLWMAv2CapEnforcement(t *testing.T) {
	params := testParams(10)
	// Very fast blocks (1 second each instead of 150 seconds)
	chain := buildChain(params.LWMAFixHeight, 15, testRootTime, 1, 0x1e0ffff0)
	tail := chain.Tip()
	got := pow.NextTargetLWMAv2(tail, tail.Timestamp()+1, &params)
	target := checkValidBits(t, got, &params)

	windowStartTarget := pow.CompactToTarget(0x1e0ffff0)
	minAllowedTarget := new(uint256.Int).Div(windowStartTarget, uint256.NewInt(3))
	if target.Lt(minAllowedTarget) {
		t.Fatalf("target %s below 3x cap %s", target.Hex(), minAllowedTarget.Hex())
	}
	if !target.Eq(minAllowedTarget) {
		t.Fatalf("target %s should sit at the 3x cap %s", target.Hex(), minAllowedTarget.Hex())
	}
}

func TestLWMARootReached(t *testing.T) {
	params := testParams(45)
	// Enough height since activation but no predecessors in view
	tail := pow.NewChain(params.LWMAHeight+20, testRootTime, 0x1c0ac141).Tip()
	if got := pow.NextTargetLWMA(tail, testRootTime, &params); got != 0x1c0ac141 {
		t.Fatalf("got 0x%08x, want 0x1c0ac141", got)
	}
	if got := pow.NextTargetLWMAv2(tail, testRootTime, &params); got != 0x1c0ac141 {
		t.Fatalf("got 0x%08x, want 0x1c0ac141", got)
	}
}

func TestLWMANoRetargeting(t *testing.T) {
	params := testParams(10)
	params.NoRetargeting = true
	chain := buildChain(params.LWMAHeight, 15, testRootTime, 1, 0x1e0ffff0)
	if got := pow.NextTargetLWMA(chain.Tip(), 0, &params); got != 0x1e0ffff0 {
		t.Fatalf("got 0x%08x, want 0x1e0ffff0", got)
	}
}

func absDiff(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		return new(uint256.Int).Sub(a, b)
	}
	return new(uint256.Int).Sub(b, a)
}
