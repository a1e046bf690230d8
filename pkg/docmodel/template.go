package docmodel

// TemplateVersion 记录模板的一个历史版本。FilePath 相对于模板根目录，
// 以 "<format>/" 开头。
type TemplateVersion struct {
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
	FilePath  string `json:"file_path"`
	ChangeLog string `json:"change_log"`
	CreatedAt string `json:"created_at"`
}

// TemplateMetadata 是一个模板名下全部版本的元数据，
// 持久化为 metadata/<name>_versions.json。
type TemplateMetadata struct {
	TemplateName   string            `json:"template_name"`
	CurrentVersion int               `json:"current_version"`
	Versions       []TemplateVersion `json:"versions"`
}
