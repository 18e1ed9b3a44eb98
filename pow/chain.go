// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

// ChainNode is the read-only view of a block that the retargeting
// algorithms walk backward through
type ChainNode struct {
	parent    *ChainNode
	height    int64
	timestamp int64
	bits      uint32
}

func (n *ChainNode) Height() int64 {
	return n.height
}

func (n *ChainNode) Timestamp() int64 {
	return n.timestamp
}

func (n *ChainNode) Bits() uint32 {
	return n.bits
}

// Parent returns the predecessor of the node, or nil at the chain root
func (n *ChainNode) Parent() *ChainNode {
	return n.parent
}

// RelativeAncestor returns the ancestor the given number of blocks
// behind this node, or nil if the walk reaches past the chain root
func (n *ChainNode) RelativeAncestor(distance int64) *ChainNode {
	node := n
	for i := int64(0); i < distance && node != nil; i++ {
		node = node.parent
	}
	return node
}

// Chain is an append-only arena of nodes with contiguous heights
// starting at the root
type Chain struct {
	nodes []*ChainNode
}

// NewChain creates a chain containing only a root node
func NewChain(rootHeight int64, rootTime int64, rootBits uint32) *Chain {
	return &Chain{
		nodes: []*ChainNode{
			{
				height:    rootHeight,
				timestamp: rootTime,
				bits:      rootBits,
			},
		},
	}
}

// Append adds a node on top of the current tip and returns it
func (c *Chain) Append(timestamp int64, bits uint32) *ChainNode {
	tip := c.Tip()
	node := &ChainNode{
		parent:    tip,
		height:    tip.height + 1,
		timestamp: timestamp,
		bits:      bits,
	}
	c.nodes = append(c.nodes, node)
	return node
}

func (c *Chain) Root() *ChainNode {
	return c.nodes[0]
}

func (c *Chain) Tip() *ChainNode {
	return c.nodes[len(c.nodes)-1]
}

func (c *Chain) Len() int {
	return len(c.nodes)
}

// NodeAt returns the node at the given height, or nil if the height is
// outside the chain
func (c *Chain) NodeAt(height int64) *ChainNode {
	idx := height - c.nodes[0].height
	if idx < 0 || idx >= int64(len(c.nodes)) {
		return nil
	}
	return c.nodes[idx]
}
