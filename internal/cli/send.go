package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/tansive/restspec/pkg/rest"
)

type sendOptions struct {
	headers     []string
	query       []string
	form        []string
	data        string
	dataFile    string
	contentType string
	logDetail   string
	yamlOutput  bool
}

var sendOpts sendOptions

func newSendCmd() *cobra.Command {
	sendOpts = sendOptions{}
	cmd := &cobra.Command{
		Use:   "send METHOD URL",
		Short: "Send a single request and print the response",
		Long: `Send a single request and print the response body. URL may be absolute or a path
relative to base_url from the configuration.

Examples:
  # Get a user
  restspec send GET https://jsonplaceholder.typicode.com/users/1

  # Create a workspace against the configured base URL
  restspec send POST /workspaces -H "X-Api-Key: $KEY" -d '{"workspace":{"name":"w","type":"personal"}}'

  # Post a form and print the echo as YAML
  restspec send POST http://127.0.0.1:8680/post -F key1=value1 --yaml`,
		Args: cobra.ExactArgs(2),
		RunE: sendRequest,
	}
	cmd.Flags().StringArrayVarP(&sendOpts.headers, "header", "H", nil, `Request header "Name: value" (repeatable)`)
	cmd.Flags().StringArrayVarP(&sendOpts.query, "query", "q", nil, "Query parameter name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&sendOpts.form, "form", "F", nil, "Form field name=value (repeatable)")
	cmd.Flags().StringVarP(&sendOpts.data, "data", "d", "", "Raw request body")
	cmd.Flags().StringVarP(&sendOpts.dataFile, "data-file", "", "", "File sent as the request body")
	cmd.Flags().StringVarP(&sendOpts.contentType, "content-type", "", "", "Request content type")
	cmd.Flags().StringVarP(&sendOpts.logDetail, "log", "", "", "Dump detail (all, body, headers, status, if_error)")
	cmd.Flags().BoolVarP(&sendOpts.yamlOutput, "yaml", "y", false, "Print JSON bodies as YAML")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file", "form")
	return cmd
}

func sendRequest(cmd *cobra.Command, args []string) error {
	method, target := strings.ToUpper(args[0]), args[1]

	sink, err := cfg.LogSink()
	if err != nil {
		return err
	}
	defer sink.Close()

	spec, err := buildSendSpec(cfg.BaseSpecification(sink), target, sendOpts)
	if err != nil {
		return err
	}
	rsp, err := rest.Execute(cmd.Context(), method, spec)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		var body any = rsp.String()
		if v, err := rsp.Path("$"); err == nil {
			body = v
		}
		headers := map[string]string{}
		for _, k := range rsp.HeaderKeys() {
			headers[k] = strings.Join(rsp.HeaderValues(k), ", ")
		}
		printJSON(w, map[string]any{
			"status":      rsp.StatusCode,
			"headers":     headers,
			"body":        body,
			"duration_ms": rsp.Duration.Milliseconds(),
		})
	} else {
		label := okLabel
		if rsp.StatusCode >= 400 {
			label = errorLabel
		}
		label.Fprintf(cmd.ErrOrStderr(), "%s %s\n", rsp.Proto, rsp.Status)
		if sendOpts.yamlOutput && strings.Contains(rsp.ContentType, "json") {
			out, err := yaml.JSONToYAML(rsp.Body())
			if err != nil {
				return fmt.Errorf("failed to convert to YAML: %w", err)
			}
			fmt.Fprint(w, string(out))
		} else {
			fmt.Fprintln(w, rsp.PrettyString())
		}
	}
	if rsp.StatusCode >= 400 {
		return ErrAlreadyHandled
	}
	return nil
}

func buildSendSpec(spec rest.Specification, target string, o sendOptions) (rest.Specification, error) {
	if u, err := url.Parse(target); err == nil && u.IsAbs() {
		spec = spec.WithBaseURL(target)
	} else {
		spec = spec.WithPath(target)
	}
	for _, h := range o.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return spec, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
		}
		spec = spec.WithHeader(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	for _, q := range o.query {
		k, v, ok := strings.Cut(q, "=")
		if !ok {
			return spec, fmt.Errorf("invalid query parameter %q, expected name=value", q)
		}
		spec = spec.WithQueryParam(k, v)
	}
	for _, f := range o.form {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return spec, fmt.Errorf("invalid form field %q, expected name=value", f)
		}
		spec = spec.WithFormParam(k, v)
	}
	if o.contentType != "" {
		spec = spec.WithContentType(o.contentType)
	}
	switch {
	case o.dataFile != "":
		if _, err := os.Stat(o.dataFile); err != nil {
			return spec, fmt.Errorf("invalid data file: %w", err)
		}
		spec = spec.WithBody(rest.FileBody(o.dataFile))
	case o.data != "":
		spec = spec.WithBody(o.data)
	}
	if o.logDetail != "" {
		d, err := rest.ParseLogDetail(o.logDetail)
		if err != nil {
			return spec, err
		}
		spec = spec.WithLogDetail(d)
	}
	return spec, spec.Err()
}
