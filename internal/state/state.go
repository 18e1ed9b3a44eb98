// Copyright 2023 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/retarget/internal/config"
	"github.com/blinklabs-io/retarget/internal/logging"
	"github.com/blinklabs-io/retarget/pow"
	"github.com/btcsuite/btcd/wire"
	"github.com/dgraph-io/badger/v4"
)

const (
	headerKeyPrefix = "header_"
)

var (
	ErrNoHeaders  = errors.New("no headers stored")
	ErrBrokenLink = errors.New("header does not link to its parent")
	ErrHeightGap  = errors.New("header height is not contiguous with the tip")
)

type State struct {
	db *badger.DB
}

var globalState = &State{}

// Load opens the configured state directory
func (s *State) Load() error {
	cfg := config.GetConfig()
	return s.Open(cfg.State.Directory)
}

// Open opens the header store in dir. An empty dir keeps everything in
// memory.
func (s *State) Open(dir string) error {
	badgerOpts := badger.DefaultOptions(dir).
		WithLogger(NewBadgerLogger()).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return fmt.Errorf("error opening state: %w", err)
	}
	s.db = db
	return nil
}

func (s *State) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func headerKey(height int64) []byte {
	key := make([]byte, len(headerKeyPrefix)+8)
	copy(key, headerKeyPrefix)
	binary.BigEndian.PutUint64(key[len(headerKeyPrefix):], uint64(height))
	return key
}

func heightFromKey(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(headerKeyPrefix):]))
}

func encodeHeader(header *wire.BlockHeader) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(wire.MaxBlockHeaderPayload)
	if err := header.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeHeader(data []byte) (*wire.BlockHeader, error) {
	header := &wire.BlockHeader{}
	if err := header.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return header, nil
}

func readHeader(item *badger.Item) (*wire.BlockHeader, error) {
	var header *wire.BlockHeader
	err := item.Value(func(v []byte) error {
		var err error
		header, err = decodeHeader(v)
		return err
	})
	return header, err
}

func tipInTxn(txn *badger.Txn) (int64, *wire.BlockHeader, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = []byte(headerKeyPrefix)
	it := txn.NewIterator(opts)
	defer it.Close()
	// Seek to the highest possible height key
	seekKey := append(
		[]byte(headerKeyPrefix),
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	)
	it.Seek(seekKey)
	if !it.Valid() {
		return 0, nil, ErrNoHeaders
	}
	item := it.Item()
	header, err := readHeader(item)
	if err != nil {
		return 0, nil, err
	}
	return heightFromKey(item.Key()), header, nil
}

// PutHeaders stores headers at consecutive heights beginning at start.
// On a non-empty store start must be the height after the tip and the
// first header must link to the tip.
func (s *State) PutHeaders(start int64, headers []*wire.BlockHeader) error {
	if start < 0 {
		return fmt.Errorf("%w: negative start height %d", ErrHeightGap, start)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		tipHeight, tipHeader, err := tipInTxn(txn)
		if err != nil && !errors.Is(err, ErrNoHeaders) {
			return err
		}
		prev := tipHeader
		if prev != nil && start != tipHeight+1 {
			return fmt.Errorf(
				"%w: got height %d, tip is at %d",
				ErrHeightGap,
				start,
				tipHeight,
			)
		}
		for i, header := range headers {
			height := start + int64(i)
			if prev != nil {
				prevHash := prev.BlockHash()
				if !header.PrevBlock.IsEqual(&prevHash) {
					return fmt.Errorf(
						"%w: height %d: previous block %s, expected %s",
						ErrBrokenLink,
						height,
						header.PrevBlock,
						prevHash,
					)
				}
			}
			data, err := encodeHeader(header)
			if err != nil {
				return err
			}
			if err := txn.Set(headerKey(height), data); err != nil {
				return err
			}
			prev = header
		}
		return nil
	})
	return err
}

// Tip returns the height and header of the highest stored header
func (s *State) Tip() (int64, *wire.BlockHeader, error) {
	var height int64
	var header *wire.BlockHeader
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		height, header, err = tipInTxn(txn)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return height, header, nil
}

// Header returns the header at height, or nil if none is stored
func (s *State) Header(height int64) (*wire.BlockHeader, error) {
	var header *wire.BlockHeader
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(headerKey(height))
		if err != nil {
			return err
		}
		header, err = readHeader(item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return header, err
}

// ForEachHeader calls fn for every stored header in height order,
// stopping at the first error
func (s *State) ForEachHeader(
	fn func(height int64, header *wire.BlockHeader) error,
) error {
	keyPrefix := []byte(headerKeyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			item := it.Item()
			header, err := readHeader(item)
			if err != nil {
				return err
			}
			if err := fn(heightFromKey(item.Key()), header); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// LoadChain builds the retargeting view of every stored header
func (s *State) LoadChain() (*pow.Chain, error) {
	var chain *pow.Chain
	err := s.ForEachHeader(func(height int64, header *wire.BlockHeader) error {
		if chain == nil {
			chain = pow.NewChain(height, header.Timestamp.Unix(), header.Bits)
			return nil
		}
		chain.Append(header.Timestamp.Unix(), header.Bits)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, ErrNoHeaders
	}
	return chain, nil
}

func GetState() *State {
	return globalState
}

// BadgerLogger is a wrapper type to give our logger the expected interface
type BadgerLogger struct {
	*logging.Logger
}

func NewBadgerLogger() *BadgerLogger {
	return &BadgerLogger{
		Logger: logging.GetLogger(),
	}
}

func (b *BadgerLogger) Warningf(msg string, args ...any) {
	b.Logger.Warnf(msg, args...)
}
