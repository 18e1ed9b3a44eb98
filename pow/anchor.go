// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

import (
	"sync"
)

// AnchorCache remembers the ASERT anchor block once it has been found.
//
// The anchor is the block at the ASERT activation height. Reorgs below
// that height are assumed impossible once ASERT is active, so the
// cached node stays valid for the lifetime of the chain it was
// resolved from. Callers validating an unrelated chain must use their
// own cache or call Reset.
type AnchorCache struct {
	mu     sync.Mutex
	anchor *ChainNode
}

// Anchor returns the cached anchor, resolving it by walking back from
// tail on first use. A nil cache resolves the anchor on every call. It
// panics if tail is below the activation height or the chain doesn't
// reach back to it.
func (c *AnchorCache) Anchor(tail *ChainNode, params *Params) *ChainNode {
	if c == nil {
		return findAnchor(tail, params)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.anchor != nil {
		return c.anchor
	}
	c.anchor = findAnchor(tail, params)
	return c.anchor
}

func findAnchor(tail *ChainNode, params *Params) *ChainNode {
	distance := tail.Height() - params.ASERTHeight
	if distance < 0 {
		panic("pow: ASERT anchor requested below the activation height")
	}
	anchor := tail.RelativeAncestor(distance)
	if anchor == nil || anchor.Height() != params.ASERTHeight {
		panic("pow: chain does not reach back to the ASERT anchor block")
	}
	return anchor
}

// Cached returns the anchor if one has been resolved
func (c *AnchorCache) Cached() *ChainNode {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchor
}

// Reset forgets the cached anchor
func (c *AnchorCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = nil
}
