package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/metaformsystems/xregistry-oci/internal/inspect"
	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
	"github.com/metaformsystems/xregistry-oci/internal/registry"
	"github.com/metaformsystems/xregistry-oci/internal/validate"
)

var logTools = logger.New("server:tools")

// Tool names
const (
	ToolListArtifacts    = "list_artifacts"
	ToolParseFilename    = "parse_filename"
	ToolValidateRegistry = "validate_registry"
	ToolBuildPackage     = "build_package"
	ToolInspectLayout    = "inspect_layout"
)

// summarizedTools return results that grow with the registry
var summarizedTools = map[string]bool{
	ToolListArtifacts:    true,
	ToolValidateRegistry: true,
	ToolInspectLayout:    true,
}

func stringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Server) toolDefinitions() []*ToolInfo {
	sourceDir := stringProperty("Registry source directory, relative to the project; defaults to the configured source directory")
	return []*ToolInfo{
		{
			Name:        ToolListArtifacts,
			Description: "Lists the artifacts of the compact xRegistry in the project, ordered by type, group, name and version",
			InputSchema: objectSchema(map[string]interface{}{
				"source_dir": sourceDir,
				"type":       stringProperty("Only list artifacts of this type (POLICY, SCHEMA, RULE or the resources directory name)"),
			}),
			Handler: s.handleListArtifacts,
		},
		{
			Name:        ToolParseFilename,
			Description: "Parses a compact artifact file name (group.resource-name.version.extension) into group, name and version",
			InputSchema: objectSchema(map[string]interface{}{
				"filename": stringProperty("File name to parse, e.g. acme.access.1.2.0.json"),
			}, "filename"),
			Handler: s.handleParseFilename,
		},
		{
			Name:        ToolValidateRegistry,
			Description: "Validates the registry documents, schema artifacts and file names",
			InputSchema: objectSchema(map[string]interface{}{
				"source_dir": sourceDir,
			}),
			Handler: s.handleValidateRegistry,
		},
		{
			Name:        ToolBuildPackage,
			Description: "Runs the packaging tasks up to the given task and returns the produced digests",
			InputSchema: objectSchema(map[string]interface{}{
				"task":             stringProperty("Target task; defaults to " + pipeline.BuildXRegistryOci),
				"source_dir":       sourceDir,
				"artifact_version": stringProperty("Overrides the artifact version (the OCI tag)"),
			}),
			Handler: s.handleBuildPackage,
		},
		{
			Name:        ToolInspectLayout,
			Description: "Reads the OCI image layout of the last build. With a jq query, returns the query results over {index, manifest, config}",
			InputSchema: objectSchema(map[string]interface{}{
				"query": stringProperty("jq expression, e.g. .manifest.layers[0].digest"),
			}),
			Handler: s.handleInspectLayout,
		},
	}
}

// stringArg returns a string argument of a tool call; absent arguments are ""
func stringArg(args interface{}, key string) (string, error) {
	m, ok := args.(map[string]interface{})
	if !ok || m[key] == nil {
		return "", nil
	}
	v, ok := m[key].(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return v, nil
}

// toolError logs a failed call and returns it as an error result
func toolError(tool string, err error) (*sdk.CallToolResult, interface{}, error) {
	logTools.Printf("Tool %s failed: %v", tool, err)
	return &sdk.CallToolResult{IsError: true}, nil, err
}

func (s *Server) project(overrides pipeline.Overrides) (*pipeline.Project, error) {
	return pipeline.NewProject(s.opts.ProjectDir, s.opts.Config, overrides)
}

func (s *Server) sourceDir(args interface{}) (string, error) {
	dir, err := stringArg(args, "source_dir")
	if err != nil {
		return "", err
	}
	project, err := s.project(pipeline.Overrides{SourceDir: dir})
	if err != nil {
		return "", err
	}
	return project.SourceDir()
}

func (s *Server) handleListArtifacts(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
	root, err := s.sourceDir(args)
	if err != nil {
		return toolError(ToolListArtifacts, err)
	}
	typeName, err := stringArg(args, "type")
	if err != nil {
		return toolError(ToolListArtifacts, err)
	}

	collector := registry.Collect(root)
	entries := collector.Sorted()
	if typeName != "" {
		t, err := registry.ParseArtifactType(typeName)
		if err != nil {
			return toolError(ToolListArtifacts, err)
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.Type == t {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	walkErrors := make([]string, 0, len(collector.Errors))
	for _, e := range collector.Errors {
		walkErrors = append(walkErrors, e.Error())
	}

	return nil, map[string]interface{}{
		"sourceDir": root,
		"count":     len(entries),
		"artifacts": relativeEntries(root, entries),
		"errors":    walkErrors,
	}, nil
}

// relativeEntries reports paths relative to the registry root
func relativeEntries(root string, entries []registry.Entry) []registry.Entry {
	out := make([]registry.Entry, len(entries))
	for i, e := range entries {
		if rel, err := filepath.Rel(root, e.Path); err == nil {
			e.Path = filepath.ToSlash(rel)
		}
		out[i] = e
	}
	return out
}

func (s *Server) handleParseFilename(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
	filename, err := stringArg(args, "filename")
	if err != nil {
		return toolError(ToolParseFilename, err)
	}
	if filename == "" {
		return toolError(ToolParseFilename, errors.New("filename is required"))
	}

	result := map[string]interface{}{
		"filename": filename,
		"valid":    false,
	}
	if artifact, ok := registry.ParseFilename(filepath.Base(filename)); ok {
		result["valid"] = true
		result["artifact"] = artifact
	}
	return nil, result, nil
}

func (s *Server) handleValidateRegistry(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
	root, err := s.sourceDir(args)
	if err != nil {
		return toolError(ToolValidateRegistry, err)
	}

	report, err := validate.Validate(root)
	if err != nil {
		return toolError(ToolValidateRegistry, err)
	}
	report.Artifacts = relativeEntries(root, report.Artifacts)

	return nil, map[string]interface{}{
		"valid":    !report.HasErrors(),
		"errors":   report.Count(validate.SeverityError),
		"warnings": report.Count(validate.SeverityWarning),
		"report":   report,
	}, nil
}

func (s *Server) handleBuildPackage(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
	var overrides pipeline.Overrides
	task, err := stringArg(args, "task")
	if err == nil {
		overrides.SourceDir, err = stringArg(args, "source_dir")
	}
	if err == nil {
		overrides.ArtifactVersion, err = stringArg(args, "artifact_version")
	}
	if err != nil {
		return toolError(ToolBuildPackage, err)
	}
	if task == "" {
		task = pipeline.BuildXRegistryOci
	}

	project, err := s.project(overrides)
	if err != nil {
		return toolError(ToolBuildPackage, err)
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	logger.LogInfo("server", "Build requested over MCP: task=%s, artifact=%s", task, project.RefName())
	p := pipeline.New(project, pipeline.WithListener(pipeline.LogListener{Project: project.Name}))
	state, err := p.Run(ctx, task)
	if err != nil {
		return toolError(ToolBuildPackage, err)
	}

	result := map[string]interface{}{
		"task":    task,
		"refName": project.RefName(),
		"files":   state.Files,
	}
	if state.Layer.Digest != "" {
		result["layerDigest"] = state.Layer.Digest.String()
	}
	if state.Manifest.Digest != "" {
		result["manifestDigest"] = state.Manifest.Digest.String()
		result["manifestSize"] = state.Manifest.Size
	}
	if state.Distribution != "" {
		result["distribution"] = state.Distribution
	}
	return nil, result, nil
}

func (s *Server) handleInspectLayout(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return toolError(ToolInspectLayout, err)
	}
	project, err := s.project(pipeline.Overrides{})
	if err != nil {
		return toolError(ToolInspectLayout, err)
	}

	layout, err := inspect.Load(project.BuildPath(oci.LayoutDir))
	if err != nil {
		return toolError(ToolInspectLayout, fmt.Errorf("%w (run %s first)", err, ToolBuildPackage))
	}
	doc, err := layout.Document()
	if err != nil {
		return toolError(ToolInspectLayout, err)
	}

	if strings.TrimSpace(query) != "" {
		results, err := inspect.Query(doc, query)
		if err != nil {
			return toolError(ToolInspectLayout, err)
		}
		return nil, map[string]interface{}{
			"query":   query,
			"results": results,
		}, nil
	}

	files, err := layout.LayerEntries()
	if err != nil {
		return toolError(ToolInspectLayout, err)
	}
	return nil, map[string]interface{}{
		"refName":  layout.RefName(),
		"document": doc,
		"files":    files,
	}, nil
}
