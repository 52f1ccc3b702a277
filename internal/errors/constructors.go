package errors

// Convenience constructors for the pipeline's error kinds

// Config errors

func ConfigError(message string) *PipelineError {
	return New(CategoryConfig, SeverityFatal, message)
}

func ConfigRequired(field string) *PipelineError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *PipelineError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Command errors

// CommandError records a build or pre-deploy command that exited non-zero.
func CommandError(command string, exitCode int, cause error) *PipelineError {
	return Wrap(cause, CategoryCommand, SeverityFatal, "command failed").
		WithContext("command", command).
		WithContext("exit_code", exitCode)
}

// Staging errors

func StagingError(message string, cause error) *PipelineError {
	return Wrap(cause, CategoryStaging, SeverityFatal, message)
}

func StagingSourceMissing(path string) *PipelineError {
	return New(CategoryStaging, SeverityFatal, "build output directory missing or empty").
		WithContext("path", path)
}

// Deploy errors

func AuthError(envVar string) *PipelineError {
	return New(CategoryAuth, SeverityFatal, "deploy credential not present in environment").
		WithContext("env_var", envVar)
}

func PublishError(message string, cause error) *PipelineError {
	return Wrap(cause, CategoryPublish, SeverityFatal, message)
}

// Infrastructure errors

func GitError(operation string, cause error) *PipelineError {
	return Wrap(cause, CategoryGit, SeverityFatal, "git operation failed").
		WithContext("operation", operation)
}

func WorkspaceError(operation string, cause error) *PipelineError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

func InternalError(message string, cause error) *PipelineError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
