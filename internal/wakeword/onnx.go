package wakeword

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXDetector scores frames with a wake-word classifier exported to ONNX.
// The model takes a fixed window of 16 kHz mono PCM, shape [1, window],
// float32 in [-1, 1], and produces a single score in [0, 1]. Each frame
// slides into the window so the detector sees the trailing context the
// model was trained on.
//
// Not safe for concurrent use; the machine drives it from the single audio
// thread only.
type ONNXDetector struct {
	word    string
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	window  []float32
}

// NewONNXDetector loads the model. libraryPath optionally points at the
// onnxruntime shared library; the environment is initialized once per
// process.
func NewONNXDetector(modelPath, libraryPath, word string, windowSamples int) (*ONNXDetector, error) {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initializing onnxruntime: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(windowSamples)))
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("loading wake word model %s: %w", modelPath, err)
	}

	return &ONNXDetector{
		word:    word,
		session: session,
		input:   input,
		output:  output,
		window:  make([]float32, windowSamples),
	}, nil
}

func (d *ONNXDetector) Score(frame []int16) (map[string]float32, error) {
	d.slide(frame)

	copy(d.input.GetData(), d.window)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("running wake word model: %w", err)
	}

	return map[string]float32{d.word: d.output.GetData()[0]}, nil
}

func (d *ONNXDetector) slide(frame []int16) {
	n := len(frame)
	if n >= len(d.window) {
		frame = frame[n-len(d.window):]
		n = len(frame)
	}
	copy(d.window, d.window[n:])
	tail := d.window[len(d.window)-n:]
	for i, s := range frame {
		tail[i] = float32(s) / 32768.0
	}
}

func (d *ONNXDetector) Close() error {
	d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	return nil
}
