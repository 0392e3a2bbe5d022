package vec

// Vec2 представляет 2D координаты. В мире используется как колонка (x, z).
type Vec2 struct {
	X, Y int
}
