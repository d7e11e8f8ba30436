// Command shaderabi lays out HLSL constant buffers and lowers parameter
// passing for the declarations in a TOML file.
//
// Usage:
//
//	shaderabi <command> [options] <decls.toml>
//
// Examples:
//
//	shaderabi layout frame.toml                 # Print every cbuffer layout
//	shaderabi hlsl -o frame.hlsl frame.toml     # Write cbuffer declarations
//	shaderabi pack frame.toml PerFrame          # Hex dump of packed values
//	shaderabi lower --call 0 frame.toml         # LLVM IR for a call site
//	shaderabi simulate frame.toml               # Trace every call site
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gogpu/shaderabi"
	"github.com/gogpu/shaderabi/abi"
	"github.com/gogpu/shaderabi/config"
	"github.com/gogpu/shaderabi/eval"
	"github.com/gogpu/shaderabi/hlsl"
	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
	"github.com/gogpu/shaderabi/llvm"
)

const shaderabiVersion = "0.1.0-dev"

var (
	verbose bool
	output  string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shaderabi",
		Short:         "HLSL constant buffer layout and parameter marshalling",
		Version:       shaderabiVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setupLogging()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every layout and marshalling decision")
	root.PersistentFlags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	root.AddCommand(layoutCmd(), hlslCmd(), packCmd(), lowerCmd(), simulateCmd())
	return root
}

func setupLogging() error {
	if !verbose {
		return nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	config.SetLogger(logger.Named("config"))
	layout.SetLogger(logger.Named("layout"))
	abi.SetLogger(logger.Named("abi"))
	eval.SetLogger(logger.Named("eval"))
	llvm.SetLogger(logger.Named("llvm"))
	return nil
}

// load builds the declarations and plans every buffer. Layout diagnostics
// are printed as warnings; the layouts stay usable.
func load(path string) (*config.Declarations, []*layout.BufferLayout, error) {
	decls, err := shaderabi.Load(path)
	if err != nil {
		return nil, nil, err
	}
	layouts, err := shaderabi.Plan(decls)
	for _, bl := range layouts {
		for _, d := range bl.Diagnostics {
			pterm.Warning.Println(d.Error())
		}
	}
	if err != nil && len(layouts) < len(decls.Module.ConstantBuffers) {
		return nil, nil, err
	}
	return decls, layouts, nil
}

func write(data []byte) error {
	if output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	pterm.Success.Printfln("wrote %s (%d bytes)", output, len(data))
	return nil
}

func layoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout <decls.toml>",
		Short: "Print the register layout of every constant buffer",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			decls, layouts, err := load(args[0])
			if err != nil {
				return err
			}
			for _, bl := range layouts {
				pterm.DefaultSection.Printfln("cbuffer %s (%d bytes, %d registers)", bl.Name, bl.Size, bl.Registers())
				if err := pterm.DefaultTable.WithHasHeader().WithData(layoutTable(decls.Module, bl)).Render(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func layoutTable(module *ir.Module, bl *layout.BufferLayout) pterm.TableData {
	data := pterm.TableData{{"Field", "Type", "Offset", "Size", "Register", "Notes"}}
	bl.Root.Walk(func(depth int, d *layout.Descriptor) {
		if depth == 0 {
			return
		}
		name := d.Name
		if name == "" {
			name = "[]"
		}
		for i := 1; i < depth; i++ {
			name = "  " + name
		}
		var notes string
		switch {
		case d.Conflict:
			notes = "conflict"
		case len(d.BitFields) > 0:
			for i, bf := range d.BitFields {
				if i > 0 {
					notes += ", "
				}
				notes += fmt.Sprintf("%s:%d@%d", bf.Name, bf.BitWidth, bf.BitOffset)
			}
		case d.Base:
			notes = "base"
		}
		data = append(data, []string{
			name,
			ir.Format(module, d.Type),
			strconv.FormatUint(uint64(d.Offset), 10),
			strconv.FormatUint(uint64(d.Size), 10),
			fmt.Sprintf("c%d.%c", d.Offset/layout.RegisterSize, "xyzw"[d.Offset%layout.RegisterSize/4]),
			notes,
		})
	})
	return data
}

func hlslCmd() *cobra.Command {
	opts := hlsl.DefaultOptions()
	var (
		shaderModel string
		noPack      bool
	)
	cmd := &cobra.Command{
		Use:   "hlsl <decls.toml>",
		Short: "Write HLSL cbuffer declarations",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sm, ok := hlsl.ParseShaderModel(shaderModel)
			if !ok {
				return fmt.Errorf("unknown shader model %q", shaderModel)
			}
			opts.ShaderModel = sm
			opts.Packoffset = !noPack

			decls, layouts, err := load(args[0])
			if err != nil {
				return err
			}
			source, info, err := shaderabi.HLSL(decls, layouts, opts)
			if err != nil {
				return err
			}
			if info.RequiredShaderModel > sm {
				pterm.Info.Printfln("declarations need %s (%s)", info.RequiredShaderModel, info.UsedFeatures)
			}
			for _, name := range info.PackoffsetOmitted {
				pterm.Info.Printfln("packoffset omitted for cbuffer %s", name)
			}
			return write([]byte(source))
		},
	}
	cmd.Flags().StringVar(&shaderModel, "shader-model", "5.1", "target shader model")
	cmd.Flags().BoolVar(&opts.StrictShaderModel, "strict", false, "fail when the declarations need a newer shader model")
	cmd.Flags().BoolVar(&noPack, "no-packoffset", false, "omit packoffset annotations")
	cmd.Flags().BoolVar(&opts.OffsetComments, "offset-comments", false, "annotate members with their offsets")
	cmd.Flags().BoolVar(&opts.AllowConflicts, "allow-conflicts", false, "write members whose explicit offset conflicts")
	cmd.Flags().BoolVar(&opts.FakeMissingBindings, "fake-bindings", true, "assign free registers to unbound cbuffers")
	return cmd
}

func packCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack <decls.toml> <buffer>",
		Short: "Pack the declared values of a constant buffer",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			decls, layouts, err := load(args[0])
			if err != nil {
				return err
			}
			bl, ok := shaderabi.FindLayout(layouts, args[1])
			if !ok {
				return fmt.Errorf("no cbuffer %q", args[1])
			}
			data, err := shaderabi.Pack(decls, bl)
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Print(hex.Dump(data))
				return nil
			}
			return write(data)
		},
	}
}

// callIndexes returns the call sites selected by --call, or all of them.
func callIndexes(decls *config.Declarations, call int) ([]int, error) {
	if call >= 0 {
		if call >= len(decls.Calls) {
			return nil, fmt.Errorf("call %d out of range (%d calls)", call, len(decls.Calls))
		}
		return []int{call}, nil
	}
	out := make([]int, len(decls.Calls))
	for i := range out {
		out[i] = i
	}
	return out, nil
}

func lowerCmd() *cobra.Command {
	var call int
	cmd := &cobra.Command{
		Use:   "lower <decls.toml>",
		Short: "Emit LLVM IR for declared call sites",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			decls, err := shaderabi.Load(args[0])
			if err != nil {
				return err
			}
			indexes, err := callIndexes(decls, call)
			if err != nil {
				return err
			}
			var out []byte
			for _, i := range indexes {
				text, err := shaderabi.LowerCall(decls, i)
				if err != nil {
					return fmt.Errorf("call %d: %w", i, err)
				}
				out = append(out, fmt.Sprintf("; call %d: %s\n", i, decls.Calls[i].Callee.Name)...)
				out = append(out, text...)
			}
			return write(out)
		},
	}
	cmd.Flags().IntVar(&call, "call", -1, "call site index (default: all)")
	return cmd
}

func simulateCmd() *cobra.Command {
	var call int
	cmd := &cobra.Command{
		Use:   "simulate <decls.toml>",
		Short: "Run declared call sites on their argument values and trace them",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			decls, err := shaderabi.Load(args[0])
			if err != nil {
				return err
			}
			indexes, err := callIndexes(decls, call)
			if err != nil {
				return err
			}
			for _, i := range indexes {
				sim, err := shaderabi.Simulate(decls, i, nil)
				if err != nil {
					return fmt.Errorf("call %d: %w", i, err)
				}
				pterm.DefaultSection.Printfln("call %d: %s", i, decls.Calls[i].Callee.Name)
				for _, e := range sim.Trace {
					fmt.Println("  " + e)
				}
				for _, a := range sim.Args {
					pterm.Info.Printfln("%s = %v", a.Name, a.Value)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&call, "call", -1, "call site index (default: all)")
	return cmd
}
