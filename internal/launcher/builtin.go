package launcher

// Builtin returns the registrations for the three bundled tools, in
// display order. Activate is left nil; the caller wires it to a runner.
// Operation flags match what the upstream executables accept.
func Builtin() []Registration {
	return []Registration{
		{
			Name:       "GT2ModelTool",
			ID:         "GT2ModelTool",
			Summary:    "convert car models between GT2 and editable formats",
			Executable: "GT2ModelTool",
			Operations: []Operation{
				{Name: "ConvertToEditable", Args: []string{"-oe"}, Summary: "dump models to editable files"},
				{Name: "ConvertToEditableSplit", Args: []string{"-oes"}, Summary: "dump models split per part"},
				{Name: "ConvertModelsToGT2", Args: []string{"-o2"}, Summary: "rebuild GT2 model files"},
			},
		},
		{
			Name:       "GT2TextureTool",
			ID:         "GT2TextureTool",
			Summary:    "dump and rebuild car textures (CDP/CNP)",
			Executable: "GT2TextureEditor",
			Operations: []Operation{
				{Name: "DumpTexture", Args: []string{"-oe"}, Summary: "dump BMP plus color palettes"},
				{Name: "ConvertTexturesToGT2", Args: []string{"-o2"}, Summary: "rebuild CDP/CNP files"},
			},
		},
		{
			Name:       "GT2BillboardEditor",
			ID:         "GT2BillboardEditor",
			Summary:    "edit trackside billboard images",
			Executable: "GT2BillboardEditor",
		},
	}
}
