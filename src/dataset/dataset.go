// Package dataset reads test images from disk in fixed-size batches.
package dataset

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

var ErrInvalidIdentifier = errors.New("image identifier is not valid UTF-8")

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// Batch pairs images with their identifiers by position.
type Batch struct {
	Images []datastructures.ImageTensor
	Ids    [][]byte
	Sizes  []image.Point
}

func (b *Batch) Len() int {
	return len(b.Ids)
}

// Iterator yields batches until io.EOF. It can't be rewound.
type Iterator interface {
	Len() int
	Next() (*Batch, error)
}

// DecodeId turns raw identifier bytes into text; identifiers are UTF-8.
func DecodeId(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", errors.Wrapf(ErrInvalidIdentifier, "%q", raw)
	}
	return string(raw), nil
}

type entry struct {
	id   []byte
	path string
}

type ImageDir struct {
	entries   []entry
	batchSize int
	height    int
	width     int
	pos       int
}

// NewImageDir lists dir. Both the stage layout (<id>/images/<id>.png) and a
// flat directory of image files are understood; entries are sorted by id.
func NewImageDir(dir string, batchSize int, height int, width int) (*ImageDir, error) {
	if batchSize < 1 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't list data dir %s", dir)
	}

	d := &ImageDir{batchSize: batchSize, height: height, width: width}
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() {
			path := filepath.Join(dir, name, "images", name+".png")
			if _, err := os.Stat(path); err != nil {
				log.Debug("[Dataset] Skipping ", name, ": no images/", name, ".png")
				continue
			}
			d.entries = append(d.entries, entry{id: []byte(name), path: path})
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !imageExtensions[ext] {
			continue
		}
		d.entries = append(d.entries, entry{id: []byte(strings.TrimSuffix(name, filepath.Ext(name))), path: filepath.Join(dir, name)})
	}
	log.Debug("[Dataset] Found ", len(d.entries), " images in ", dir)
	return d, nil
}

func (d *ImageDir) Len() int {
	return len(d.entries)
}

func (d *ImageDir) Next() (*Batch, error) {
	if d.pos >= len(d.entries) {
		return nil, io.EOF
	}
	end := d.pos + d.batchSize
	if end > len(d.entries) {
		end = len(d.entries)
	}

	batch := &Batch{}
	for _, e := range d.entries[d.pos:end] {
		tensor, size, err := LoadImage(e.path, d.height, d.width)
		if err != nil {
			return nil, err
		}
		batch.Images = append(batch.Images, tensor)
		batch.Ids = append(batch.Ids, e.id)
		batch.Sizes = append(batch.Sizes, size)
	}
	d.pos = end
	return batch, nil
}

// LoadImage reads an image, resizes it to height x width and returns it
// as an RGB tensor in [0,1] together with its original size.
func LoadImage(path string, height int, width int) (datastructures.ImageTensor, image.Point, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, image.Point{}, errors.Wrapf(err, "couldn't open image %s", path)
	}
	return ToTensor(img, height, width), img.Bounds().Size(), nil
}

func ToTensor(img image.Image, height int, width int) datastructures.ImageTensor {
	resized := imaging.Resize(img, width, height, imaging.Box)
	tensor := make(datastructures.ImageTensor, height)
	for y := 0; y < height; y++ {
		tensor[y] = make([][]float32, width)
		for x := 0; x < width; x++ {
			i := y*resized.Stride + x*4
			tensor[y][x] = []float32{
				float32(resized.Pix[i]) / 255,
				float32(resized.Pix[i+1]) / 255,
				float32(resized.Pix[i+2]) / 255,
			}
		}
	}
	return tensor
}

// ResizeMask scales a probability mask to height x width with linear
// interpolation. The result has 8-bit precision.
func ResizeMask(mask datastructures.ProbabilityMask, height int, width int) datastructures.ProbabilityMask {
	if mask.Height == height && mask.Width == width {
		out := datastructures.NewProbabilityMask(height, width)
		copy(out.Pix, mask.Pix)
		return out
	}

	gray := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
	for i, p := range mask.Pix {
		switch {
		case p <= 0:
			gray.Pix[i] = 0
		case p >= 1:
			gray.Pix[i] = 255
		default:
			gray.Pix[i] = uint8(p*255 + 0.5)
		}
	}

	resized := imaging.Resize(gray, width, height, imaging.Linear)
	out := datastructures.NewProbabilityMask(height, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Pix[y*width+x] = float32(resized.Pix[y*resized.Stride+x*4]) / 255
		}
	}
	return out
}
