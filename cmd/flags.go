package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddFlagValidation wraps a flag's value so bad input is rejected at parse
// time with a proper message instead of deep inside the command.
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}

	return v.Value.Set(val)
}

// ValidateFormat checks an output-format value against the supported set.
func ValidateFormat(format string, supported []string) error {
	for _, valid := range supported {
		if strings.EqualFold(format, valid) {
			return nil
		}
	}

	return fmt.Errorf("unsupported format: %s (supported: %s)",
		format, strings.Join(supported, ", "))
}
