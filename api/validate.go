package api

// ValidateOptions checks the generation parameters bounded by the gateway's
// wire contract: temperature in [0,2], top_p in [0,1], frequency_penalty and
// presence_penalty in [-2,2]. It returns a 400 invalid_request_error with
// Param set to the offending field, matching the error taxonomy's
// Validation row.
func ValidateOptions(o Options) error {
	switch {
	case o.Temperature < 0 || o.Temperature > 2:
		return paramError("temperature", "temperature must be between 0 and 2")
	case o.TopP < 0 || o.TopP > 1:
		return paramError("top_p", "top_p must be between 0 and 1")
	case o.FrequencyPenalty < -2 || o.FrequencyPenalty > 2:
		return paramError("frequency_penalty", "frequency_penalty must be between -2 and 2")
	case o.PresencePenalty < -2 || o.PresencePenalty > 2:
		return paramError("presence_penalty", "presence_penalty must be between -2 and 2")
	}
	return nil
}

func paramError(param, message string) StatusError {
	return StatusError{StatusCode: 400, Type: ErrTypeInvalidRequest, Param: param, Message: message}
}
