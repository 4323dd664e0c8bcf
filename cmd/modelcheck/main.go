// Command modelcheck verifies that the face models load in ONNX Runtime
// with the tensor names the detector expects, and reports whether go-metal
// can import them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tsawler/go-metal/checkpoints"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/beautycam/internal/detector"
	"github.com/dudu/beautycam/internal/inference"
	"github.com/dudu/beautycam/internal/logging"
)

var (
	libraryPath string
	kind        string
	tryMetal    bool
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:          "modelcheck <model.onnx>",
	Short:        "Check that an ONNX face model can be used by beautycam",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.InitLogger(logLevel)
		return check(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVar(&libraryPath, "lib", "", "ONNX Runtime shared library (default: platform location)")
	rootCmd.Flags().StringVar(&kind, "kind", "scrfd", "Model kind: scrfd or landmark106")
	rootCmd.Flags().BoolVar(&tryMetal, "metal", false, "Also try importing the model with go-metal")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func check(modelPath string) error {
	var inputs, outputs []string
	switch kind {
	case "scrfd":
		inputs, outputs = detector.SCRFDInputs, detector.SCRFDOutputs
	case "landmark106":
		inputs, outputs = detector.Landmark106Inputs, detector.Landmark106Outputs
	default:
		return fmt.Errorf("unknown model kind %q", kind)
	}

	fmt.Printf("Testing ONNX model: %s\n", modelPath)
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("model not readable: %w", err)
	}

	if err := inference.Initialize(libraryPath); err != nil {
		return err
	}
	defer inference.Shutdown()
	fmt.Println("✓ ONNX Runtime initialized")

	inInfo, outInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return fmt.Errorf("failed to get model info: %w", err)
	}
	printInfo("Inputs", inInfo)
	printInfo("Outputs", outInfo)

	missing := append(missingNames(inputs, inInfo), missingNames(outputs, outInfo)...)
	if len(missing) > 0 {
		return fmt.Errorf("model is missing tensors %v expected for %s", missing, kind)
	}

	session, err := inference.NewSession(modelPath, inputs, outputs)
	if err != nil {
		return err
	}
	if err := session.Destroy(); err != nil {
		return err
	}
	fmt.Printf("\n✅ SUCCESS! Model is usable as %s.\n", kind)

	if tryMetal {
		return metalImport(modelPath)
	}
	return nil
}

func printInfo(title string, info []ort.InputOutputInfo) {
	fmt.Printf("\n%s (%d):\n", title, len(info))
	sorted := slices.Clone(info)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, i := range sorted {
		fmt.Printf("  %s: shape=%v, type=%v\n", i.Name, i.Dimensions, i.DataType)
	}
}

func missingNames(want []string, info []ort.InputOutputInfo) []string {
	var missing []string
	for _, name := range want {
		if !slices.ContainsFunc(info, func(i ort.InputOutputInfo) bool { return i.Name == name }) {
			missing = append(missing, name)
		}
	}
	return missing
}

// metalImport reports whether go-metal understands every layer
func metalImport(modelPath string) error {
	fmt.Println("\nAttempting to import with go-metal...")
	importer := checkpoints.NewONNXImporter()
	checkpoint, err := importer.ImportFromONNX(modelPath)
	if err != nil {
		fmt.Println("go-metal only supports: Conv, MatMul, Add, Relu, LeakyRelu,")
		fmt.Println("Sigmoid, Tanh, BatchNorm, Dropout, Softmax, Flatten")
		return errors.Join(errors.New("go-metal import failed"), err)
	}
	fmt.Printf("✓ go-metal imported %d layers, %d weight tensors\n",
		len(checkpoint.ModelSpec.Layers), len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
	return nil
}
