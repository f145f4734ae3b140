package transform

// Dataset normalization constants.
var (
	MNISTMean = []float32{0.1307}
	MNISTStd  = []float32{0.3081}

	CIFAR10Mean = []float32{125.3 / 255, 123.0 / 255, 113.9 / 255}
	CIFAR10Std  = []float32{63.0 / 255, 62.1 / 255, 66.7 / 255}
)

// MNIST returns ToTensor + Normalize(0.1307, 0.3081).
func MNIST() Compose {
	return Compose{ToTensor{}, Normalize{Mean: MNISTMean, Std: MNISTStd}}
}

// CIFAR10Eval returns ToTensor followed by CIFAR10 normalization when
// normalize is set.
func CIFAR10Eval(normalize bool) Compose {
	c := Compose{ToTensor{}}
	if normalize {
		c = append(c, Normalize{Mean: CIFAR10Mean, Std: CIFAR10Std})
	}
	return c
}

// CIFAR10Train returns the standard augmentation: 4-pixel padded random
// 32×32 crops and horizontal flips, then CIFAR10Eval.
func CIFAR10Train(normalize bool) Compose {
	return append(Compose{
		RandomCrop{Size: 32, Padding: 4},
		RandomHorizontalFlip{P: 0.5},
	}, CIFAR10Eval(normalize)...)
}
