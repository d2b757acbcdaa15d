package impl

import (
	"fmt"
	"os"

	"github.com/emberlink/ember/state"
	"github.com/goccy/go-yaml"
)

// FileStore persists transport state to a single yaml file, rewritten on
// every mutation so it is durable when the call returns.
type FileStore struct {
	path string
	data fileStoreData
}

type fileStoreData struct {
	NodeID   uint8           `yaml:"node_id"`
	Parent   uint8           `yaml:"parent"`
	Distance uint8           `yaml:"distance"`
	Routes   map[uint8]uint8 `yaml:"routes"`
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		data: fileStoreData{
			NodeID: state.AutoAddress,
			Parent: state.AutoAddress,
			Routes: make(map[uint8]uint8),
		},
	}
	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(file, &s.data); err != nil {
		return nil, fmt.Errorf("corrupt store file %s: %w", path, err)
	}
	if s.data.Routes == nil {
		s.data.Routes = make(map[uint8]uint8)
	}
	return s, nil
}

func (s *FileStore) flush() error {
	bytes, err := yaml.Marshal(s.data)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, bytes, 0600)
}

func (s *FileStore) LoadNodeID() (uint8, error) {
	return s.data.NodeID, nil
}

func (s *FileStore) StoreNodeID(id uint8) error {
	s.data.NodeID = id
	return s.flush()
}

func (s *FileStore) LoadParent() (uint8, uint8, error) {
	return s.data.Parent, s.data.Distance, nil
}

func (s *FileStore) StoreParent(id, distance uint8) error {
	s.data.Parent = id
	s.data.Distance = distance
	return s.flush()
}

func (s *FileStore) LoadRoute(dest uint8) (uint8, bool, error) {
	next, ok := s.data.Routes[dest]
	return next, ok, nil
}

func (s *FileStore) StoreRoute(dest, next uint8) error {
	s.data.Routes[dest] = next
	return s.flush()
}

func (s *FileStore) ClearRoutes() error {
	s.data.Routes = make(map[uint8]uint8)
	return s.flush()
}

func (s *FileStore) Routes() (map[uint8]uint8, error) {
	out := make(map[uint8]uint8, len(s.data.Routes))
	for k, v := range s.data.Routes {
		out[k] = v
	}
	return out, nil
}
