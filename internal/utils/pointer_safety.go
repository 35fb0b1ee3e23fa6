package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// Apply overwrites *dst with *patch when patch is set. Used for partial updates.
func Apply[T any](dst *T, patch *T) {
	if patch != nil {
		*dst = *patch
	}
}
