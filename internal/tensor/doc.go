// Package tensor provides the float32 tensor type shared by the classifier
// stack, together with the Backend interface that concrete compute backends
// (CPU, autodiff decorator) implement.
//
// Design:
//   - RawTensor: untyped storage + shape, the unit backends operate on
//   - Tensor[B]: a RawTensor bound to a backend, the unit models operate on
//   - Backend: the minimal operator set needed by MLP and ResNet classifiers
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	x := tensor.Randn(tensor.Shape{32, 784}, backend)
//	y := x.MatMul(w.Transpose()).ReLU()
package tensor
