package funcs

type mapperFunc[T any, R any] func(T) R

func Map[T any, R any](input []T, mapper mapperFunc[T, R]) []R {
	result := make([]R, len(input))

	for i := range len(input) {
		result[i] = mapper(input[i])
	}

	return result
}

type validatorFunc[T any] func(T) bool

func Filter[T any](input []T, expression validatorFunc[T]) []T {
	result := make([]T, 0, len(input))

	for _, elem := range input {
		if expression(elem) {
			result = append(result, elem)
		}
	}

	return result
}

// SetOf indexes input by key. Later duplicates overwrite earlier ones.
func SetOf[T any, K comparable](input []T, key mapperFunc[T, K]) map[K]T {
	result := make(map[K]T, len(input))

	for _, elem := range input {
		result[key(elem)] = elem
	}

	return result
}
