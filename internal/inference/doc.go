// Package inference runs normalized ECG sequences through a caller-supplied
// model. The model is opaque: the adapter only fixes its mode, gradient state,
// input shape and device before each forward pass and returns whatever the
// model produces.
package inference
