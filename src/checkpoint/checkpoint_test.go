package checkpoint

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func writeFile(t *testing.T, path string, content string) {
	ok(t, ioutil.WriteFile(path, []byte(content), 0644))
}

func TestStepFromPath(t *testing.T) {
	equals(t, "1200", StepFromPath("/models/model.ckpt-1200"))
	equals(t, "7", StepFromPath("model.ckpt-7"))
	equals(t, "model.ckpt", StepFromPath("/models/model.ckpt"))
}

func TestLoadLatest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, StateFile),
		"model_checkpoint_path: \"model.ckpt-30\"\n"+
			"all_model_checkpoint_paths: \"model.ckpt-20\"\n"+
			"all_model_checkpoint_paths: \"model.ckpt-30\"\n")
	writeFile(t, filepath.Join(dir, "model.ckpt-30.pb"), "graph")
	writeFile(t, filepath.Join(dir, ModelInfoFile), `{"build": 3, "based_on": "unet"}`)

	ckpt, err := NewFileStore().LoadLatest(dir)
	ok(t, err)
	equals(t, "30", ckpt.Step)
	equals(t, filepath.Join(dir, "model.ckpt-30"), ckpt.Path)
	equals(t, []byte("graph"), ckpt.Graph)
	equals(t, int32(3), ckpt.ModelInfo.Build)
	equals(t, "unet", ckpt.ModelInfo.BasedOn)
	equals(t, "30", ckpt.ModelInfo.Step)
}

func TestLoadLatestAbsolutePathWithoutModelInfo(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	writeFile(t, filepath.Join(dir, StateFile), "model_checkpoint_path: \""+filepath.Join(other, "model.ckpt-5")+"\"\n")
	writeFile(t, filepath.Join(other, "model.ckpt-5.pb"), "g")

	ckpt, err := NewFileStore().LoadLatest(dir)
	ok(t, err)
	equals(t, "5", ckpt.Step)
	equals(t, int32(0), ckpt.ModelInfo.Build)
}

func TestLoadLatestMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileStore().LoadLatest(dir)
	equals(t, ErrNoCheckpoint, errors.Cause(err))

	writeFile(t, filepath.Join(dir, StateFile), "all_model_checkpoint_paths: \"model.ckpt-1\"\n")
	_, err = NewFileStore().LoadLatest(dir)
	equals(t, ErrNoCheckpoint, errors.Cause(err))

	writeFile(t, filepath.Join(dir, StateFile), "model_checkpoint_path: \"model.ckpt-1\"\n")
	_, err = NewFileStore().LoadLatest(dir)
	equals(t, ErrNoCheckpoint, errors.Cause(err))
}

func TestLoadLatestBadModelInfo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, StateFile), "model_checkpoint_path: \"model.ckpt-2\"\n")
	writeFile(t, filepath.Join(dir, "model.ckpt-2.pb"), "g")
	writeFile(t, filepath.Join(dir, ModelInfoFile), "{")

	_, err := NewFileStore().LoadLatest(dir)
	notEquals(t, nil, err)
	notEquals(t, ErrNoCheckpoint, errors.Cause(err))
}
