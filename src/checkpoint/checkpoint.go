// Package checkpoint locates the newest exported model snapshot in a
// checkpoint directory.
//
// The directory follows the TensorFlow saver layout: a "checkpoint" state
// file whose model_checkpoint_path entry names the newest snapshot
// ("model.ckpt-<step>"). The frozen inference graph for that snapshot is
// expected next to it as "<snapshot>.pb". An optional model_info.json
// describes the model.
package checkpoint

import (
	"bufio"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

var ErrNoCheckpoint = errors.New("no checkpoint found")

const (
	StateFile     = "checkpoint"
	ModelInfoFile = "model_info.json"
	GraphSuffix   = ".pb"
)

type Checkpoint struct {
	Path      string
	Step      string
	Graph     []byte
	ModelInfo datastructures.ModelInfo
}

type Store interface {
	LoadLatest(dir string) (*Checkpoint, error)
}

type FileStore struct{}

func NewFileStore() *FileStore {
	return &FileStore{}
}

// StepFromPath returns the text after the last '-' of the snapshot's base
// name, or the whole base name when there is none.
func StepFromPath(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndex(base, "-"); i >= 0 {
		return base[i+1:]
	}
	return base
}

// readState returns the model_checkpoint_path entry of the state file.
func readState(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "model_checkpoint_path:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "model_checkpoint_path:"))
		unquoted, err := strconv.Unquote(value)
		if err != nil {
			return "", errors.Wrapf(err, "bad model_checkpoint_path %s", value)
		}
		return unquoted, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", nil
}

func (s *FileStore) LoadLatest(dir string) (*Checkpoint, error) {
	snapshot, err := readState(filepath.Join(dir, StateFile))
	if err != nil {
		log.Debug("[Checkpoint] Couldn't read checkpoint state: ", err.Error())
		return nil, errors.Wrapf(ErrNoCheckpoint, "no checkpoint file found at %s", dir)
	}
	if snapshot == "" {
		return nil, errors.Wrapf(ErrNoCheckpoint, "no model_checkpoint_path in %s", filepath.Join(dir, StateFile))
	}
	if !filepath.IsAbs(snapshot) {
		snapshot = filepath.Join(dir, snapshot)
	}

	graph, err := ioutil.ReadFile(snapshot + GraphSuffix)
	if err != nil {
		log.Debug("[Checkpoint] Couldn't read graph: ", err.Error())
		return nil, errors.Wrapf(ErrNoCheckpoint, "no exported graph for %s", snapshot)
	}

	ckpt := &Checkpoint{
		Path:  snapshot,
		Step:  StepFromPath(snapshot),
		Graph: graph,
	}

	info, err := ioutil.ReadFile(filepath.Join(dir, ModelInfoFile))
	if err == nil {
		if err := json.Unmarshal(info, &ckpt.ModelInfo); err != nil {
			return nil, errors.Wrap(err, "couldn't parse model info")
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "couldn't read model info")
	}
	ckpt.ModelInfo.Step = ckpt.Step

	return ckpt, nil
}
