package mocks

import (
	"resource-manager/core/codec"

	"github.com/stretchr/testify/mock"
)

// Set is a mock implementation of codec.Set
type Set struct {
	mock.Mock
}

func (m *Set) ParseTable(data []byte) (*codec.Table, error) {
	args := m.Called(data)
	if t, ok := args.Get(0).(*codec.Table); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Set) ParseStringTable(path string) (*codec.StringTable, error) {
	args := m.Called(path)
	if t, ok := args.Get(0).(*codec.StringTable); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Set) ParseRecord(data []byte) (*codec.Record, error) {
	args := m.Called(data)
	if r, ok := args.Get(0).(*codec.Record); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Set) OpenArchive(path string) (codec.Archive, error) {
	args := m.Called(path)
	if a, ok := args.Get(0).(codec.Archive); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Set) OpenArchiveBytes(name string, data []byte) (codec.Archive, error) {
	args := m.Called(name, data)
	if a, ok := args.Get(0).(codec.Archive); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

// Archive is a mock implementation of codec.Archive
type Archive struct {
	mock.Mock
}

func (m *Archive) List() []codec.Entry {
	args := m.Called()
	if e, ok := args.Get(0).([]codec.Entry); ok {
		return e
	}
	return nil
}

func (m *Archive) Extract(name string) ([]byte, error) {
	args := m.Called(name)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Archive) Close() error {
	args := m.Called()
	return args.Error(0)
}
