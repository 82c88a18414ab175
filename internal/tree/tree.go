// Package tree implements the fine-grained, per-node reader/writer-locked
// binary search tree that backs the key/value store: hand-over-hand
// (lock-coupling) traversal for Query, Add, Remove and Print, and an
// unlocked bulk teardown for Cleanup.
//
// The traversal discipline is: the caller always enters with a lock held on
// the current node ("parent"). To descend, the child of the same lock kind
// is acquired *before* the parent is released, so a concurrent writer can
// never splice a node out of the path a reader or another writer is
// currently walking. This is converted from the natural recursive
// formulation into an explicit loop holding a single "current parent lock"
// at a time, since a recursive version can otherwise recurse to tree depth.
package tree

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// MaxNodeLen is the maximum length in bytes of a stored name or value.
// Names or values longer than this cannot be constructed into a Node.
const MaxNodeLen = 256

var (
	// ErrDuplicate is returned by Add when the name already exists.
	ErrDuplicate = errors.New("already in database")
	// ErrNotFound is returned by Remove and Query when the name is absent.
	ErrNotFound = errors.New("not found")
	// ErrTooLong is returned when a name or value exceeds MaxNodeLen bytes.
	ErrTooLong = errors.New("name or value too long")
)

// Node is one entry of the tree. The sentinel root node has an empty name
// and value and is never removed.
type Node struct {
	mu     sync.RWMutex
	name   string
	value  string
	lchild *Node
	rchild *Node
}

// Tree is a binary search tree ordered by strict lexicographic byte
// comparison of names, rooted at a sentinel node that is never destroyed.
type Tree struct {
	root  *Node
	nodes atomic.Int64
}

// New creates an empty Tree, ready for concurrent use.
func New() *Tree {
	return &Tree{root: &Node{}}
}

// NodeCount returns the number of real (non-sentinel) nodes currently
// stored. It is eventually consistent with respect to concurrent Add/Remove.
func (t *Tree) NodeCount() int64 {
	return t.nodes.Load()
}

type lockKind int

const (
	lockRead lockKind = iota
	lockWrite
)

func (n *Node) lock(kind lockKind) {
	if kind == lockRead {
		n.mu.RLock()
	} else {
		n.mu.Lock()
	}
}

func (n *Node) unlock(kind lockKind) {
	if kind == lockRead {
		n.mu.RUnlock()
	} else {
		n.mu.Unlock()
	}
}

// search performs the hand-over-hand descent for name, starting at the
// locked root sentinel. It returns the target node (locked, under kind) if
// found, or nil if absent. If needParent is true, the parent that either
// holds the found target as a child, or under which the target would be
// inserted, is returned locked as well; the caller is then responsible for
// unlocking it. If needParent is false, only a found target is returned
// locked; the parent chain is fully unlocked by search itself.
func (t *Tree) search(name string, kind lockKind, needParent bool) (target, parent *Node) {
	cur := t.root
	cur.lock(kind)

	for {
		var next *Node
		if name < cur.name {
			next = cur.lchild
		} else {
			next = cur.rchild
		}

		if next == nil {
			target = nil
			parent = cur
			break
		}

		next.lock(kind)
		if next.name == name {
			target = next
			parent = cur
			break
		}

		cur.unlock(kind)
		cur = next
	}

	if !needParent {
		parent.unlock(kind)
		return target, nil
	}
	return target, parent
}

// Query looks up name and returns its value.
func (t *Tree) Query(name string) (string, error) {
	target, _ := t.search(name, lockRead, false)
	if target == nil {
		return "", ErrNotFound
	}
	value := target.value
	target.unlock(lockRead)
	return value, nil
}

// Add inserts name/value if name is not already present.
func (t *Tree) Add(name, value string) error {
	if len(name) > MaxNodeLen || len(value) > MaxNodeLen {
		return ErrTooLong
	}

	target, parent := t.search(name, lockWrite, true)
	if target != nil {
		target.unlock(lockWrite)
		parent.unlock(lockWrite)
		return ErrDuplicate
	}

	newNode := &Node{name: name, value: value}
	if name < parent.name {
		parent.lchild = newNode
	} else {
		parent.rchild = newNode
	}
	parent.unlock(lockWrite)
	t.nodes.Add(1)
	return nil
}

// Remove deletes name from the tree if present.
func (t *Tree) Remove(name string) error {
	target, parent := t.search(name, lockWrite, true)
	if target == nil {
		parent.unlock(lockWrite)
		return ErrNotFound
	}

	replaceChild := func(with *Node) {
		if name < parent.name {
			parent.lchild = with
		} else {
			parent.rchild = with
		}
	}

	switch {
	case target.rchild == nil:
		replaceChild(target.lchild)
		parent.unlock(lockWrite)
		target.unlock(lockWrite)

	case target.lchild == nil:
		replaceChild(target.rchild)
		parent.unlock(lockWrite)
		target.unlock(lockWrite)

	default:
		// Two children: splice in the in-order successor, the smallest
		// node in target's right subtree, found by lock-coupling down the
		// left spine of that subtree.
		succ := target.rchild
		succ.lock(lockWrite)

		spineParent := target // node whose child pointer must be retargeted
		spineIsLeft := false  // whether that pointer is spineParent.lchild

		for succ.lchild != nil {
			child := succ.lchild
			child.lock(lockWrite)
			succ.unlock(lockWrite)
			spineParent = succ
			spineIsLeft = true
			succ = child
		}

		if spineIsLeft {
			spineParent.lchild = succ.rchild
		} else {
			spineParent.rchild = succ.rchild
		}

		target.name = succ.name
		target.value = succ.value

		succ.unlock(lockWrite)
		target.unlock(lockWrite)
		parent.unlock(lockWrite)
	}

	t.nodes.Add(-1)
	return nil
}

// Print writes an indented, depth-first rendering of the tree to w. Each
// node is read-locked for the duration of its own line and its subtree
// traversal; sibling subtrees may be mutated concurrently, so the snapshot
// is consistent within a subtree but not atomic across the whole tree.
func (t *Tree) Print(w io.Writer) error {
	return t.printRecurs(t.root, 0, w)
}

func (t *Tree) printRecurs(n *Node, lvl int, w io.Writer) error {
	indent := strings.Repeat(" ", lvl)
	if n == nil {
		_, err := fmt.Fprintf(w, "%s(null)\n", indent)
		return err
	}

	n.lock(lockRead)
	defer n.unlock(lockRead)

	var err error
	if n == t.root {
		_, err = fmt.Fprintf(w, "%s(root)\n", indent)
	} else {
		_, err = fmt.Fprintf(w, "%s%s %s\n", indent, n.name, n.value)
	}
	if err != nil {
		return err
	}

	if err := t.printRecurs(n.lchild, lvl+1, w); err != nil {
		return err
	}
	return t.printRecurs(n.rchild, lvl+1, w)
}

// Cleanup discards every node except the sentinel root. It must only be
// called once no worker can possibly hold a lock anywhere in the tree
// (i.e. after the supervisor has drained the roster) since it detaches the
// sentinel's subtrees without taking any lock.
func (t *Tree) Cleanup() {
	t.root.lchild = nil
	t.root.rchild = nil
	t.nodes.Store(0)
}
