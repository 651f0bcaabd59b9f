package core

// BaseOptions identifies the model asset a task runs against. Exactly one
// source is required; the engine backend decides how to load it.
type BaseOptions struct {
	// ModelAssetPath is a path to a model file on local storage.
	ModelAssetPath string
	// ModelAssetBuffer holds the model file contents in memory.
	ModelAssetBuffer []byte
	// ModelAssetName names a model already hosted by a remote backend.
	ModelAssetName string
}

// Validate checks that at least one model source is specified.
func (o BaseOptions) Validate() error {
	if o.ModelAssetPath == "" && len(o.ModelAssetBuffer) == 0 && o.ModelAssetName == "" {
		return InvalidArgumentf("ExternalFile must specify at least one of 'file_content', " +
			"'file_name', 'file_pointer_meta' or 'file_descriptor_meta'.")
	}
	return nil
}
