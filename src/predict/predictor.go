package predict

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	tf "github.com/tensorflow/tensorflow/tensorflow/go"

	"github.com/tony32769/2018-Data-Science-Bowl/src/checkpoint"
	"github.com/tony32769/2018-Data-Science-Bowl/src/commons"
	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

// Options names the graph operations the predictor feeds and fetches.
// ModeOp is the boolean "training" placeholder; leave it empty if the
// exported graph has none.
type Options struct {
	InputOp  string
	ModeOp   string
	OutputOp string
}

type TensorflowPredictor struct {
	graph     *tf.Graph
	session   *tf.Session
	modelInfo datastructures.ModelInfo
	opts      Options
}

func NewTensorflowPredictor(opts Options) *TensorflowPredictor {
	return &TensorflowPredictor{opts: opts}
}

// Loader returns a commons.ModelLoader producing TensorflowPredictors.
func Loader(opts Options) commons.ModelLoader {
	return func(ckpt *checkpoint.Checkpoint) (commons.Model, error) {
		p := NewTensorflowPredictor(opts)
		if err := p.Load(ckpt); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func (p *TensorflowPredictor) Load(ckpt *checkpoint.Checkpoint) error {
	p.modelInfo = ckpt.ModelInfo

	// Construct an in-memory graph from the serialized form.
	p.graph = tf.NewGraph()
	if err := p.graph.Import(ckpt.Graph, ""); err != nil {
		log.Debug("[Predictor] Couldn't construct graph: ", err.Error())
		return errors.Wrapf(err, "couldn't import graph of %s", ckpt.Path)
	}

	for _, name := range []string{p.opts.InputOp, p.opts.ModeOp, p.opts.OutputOp} {
		if name != "" && p.graph.Operation(name) == nil {
			return fmt.Errorf("graph of %s has no operation %q", ckpt.Path, name)
		}
	}

	// Create a session for inference over graph.
	var err error
	p.session, err = tf.NewSession(p.graph, nil)
	if err != nil {
		log.Debug("[Predictor] Couldn't start session: ", err.Error())
		return errors.Wrap(err, "couldn't start session")
	}

	log.Info("[Predictor] Loaded model from ", ckpt.Path, " at step=", ckpt.Step)
	return nil
}

func (p *TensorflowPredictor) ModelInfo() datastructures.ModelInfo {
	return p.modelInfo
}

// Predict runs one batch through the graph. The output operation must
// produce either (N, H, W, 1) or (N, H, W) float32 values.
func (p *TensorflowPredictor) Predict(images []datastructures.ImageTensor) ([]datastructures.ProbabilityMask, error) {
	if len(images) == 0 {
		return nil, nil
	}

	batch := make([][][][]float32, len(images))
	for i, img := range images {
		batch[i] = img
	}
	input, err := tf.NewTensor(batch)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create input tensor")
	}

	feeds := map[tf.Output]*tf.Tensor{
		p.graph.Operation(p.opts.InputOp).Output(0): input,
	}
	if p.opts.ModeOp != "" {
		mode, err := tf.NewTensor(false)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't create mode tensor")
		}
		feeds[p.graph.Operation(p.opts.ModeOp).Output(0)] = mode
	}

	output, err := p.session.Run(
		feeds,
		[]tf.Output{
			p.graph.Operation(p.opts.OutputOp).Output(0),
		},
		nil)
	if err != nil {
		log.Debug("[Predictor] Couldn't run prediction: ", err.Error())
		return nil, errors.Wrap(err, "couldn't run prediction")
	}

	masks, err := toMasks(output[0].Value())
	if err != nil {
		return nil, err
	}
	if len(masks) != len(images) {
		return nil, fmt.Errorf("model returned %d masks for %d images", len(masks), len(images))
	}
	return masks, nil
}

func toMasks(value interface{}) ([]datastructures.ProbabilityMask, error) {
	switch v := value.(type) {
	case [][][][]float32:
		masks := make([]datastructures.ProbabilityMask, len(v))
		for n, img := range v {
			mask := datastructures.NewProbabilityMask(len(img), width(img))
			for y, row := range img {
				for x, px := range row {
					// squeeze the single channel
					mask.Pix[y*mask.Width+x] = px[0]
				}
			}
			masks[n] = mask
		}
		return masks, nil
	case [][][]float32:
		masks := make([]datastructures.ProbabilityMask, len(v))
		for n, img := range v {
			w := 0
			if len(img) > 0 {
				w = len(img[0])
			}
			mask := datastructures.NewProbabilityMask(len(img), w)
			for y, row := range img {
				copy(mask.Pix[y*w:(y+1)*w], row)
			}
			masks[n] = mask
		}
		return masks, nil
	}
	return nil, fmt.Errorf("unexpected model output of type %T", value)
}

func width(img [][][]float32) int {
	if len(img) == 0 {
		return 0
	}
	return len(img[0])
}

func (p *TensorflowPredictor) Close() error {
	if p.session == nil {
		return nil
	}
	return p.session.Close()
}
