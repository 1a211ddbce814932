package orientation

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// zeroRotation signifies no rotation.
var zeroRotation = quat.Number{Real: 1}

// axisAngleToQuat converts a rotation of angle radians about axis into a unit
// quaternion. A zero axis returns the zero rotation.
func axisAngleToQuat(axis r3.Vector, angle float64) quat.Number {
	norm := axis.Norm()
	if norm == 0 {
		return zeroRotation
	}
	axis = axis.Mul(1 / norm)
	sin, cos := math.Sincos(angle / 2)
	return quat.Number{Real: cos, Imag: sin * axis.X, Jmag: sin * axis.Y, Kmag: sin * axis.Z}
}

// rotateByQuat rotates vector v by unit quaternion q.
func rotateByQuat(v r3.Vector, q quat.Number) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// rotationMatrix expands a unit quaternion into the nine entries of its
// rotation matrix, row major.
func rotationMatrix(q quat.Number) [9]float64 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [9]float64{
		1 - 2*y*y - 2*z*z, 2*x*y - 2*w*z, 2*x*z + 2*w*y,
		2*x*y + 2*w*z, 1 - 2*x*x - 2*z*z, 2*y*z - 2*w*x,
		2*x*z - 2*w*y, 2*y*z + 2*w*x, 1 - 2*x*x - 2*y*y,
	}
}

// quatToYawPitchRoll decomposes a unit quaternion into Euler angles applied
// in yaw (about world Y), then pitch (about the post-yaw X), then roll order,
// radians. At the pitch singularity the roll is folded into yaw.
func quatToYawPitchRoll(q quat.Number) (yaw, pitch, roll float64) {
	m := rotationMatrix(q)
	sinPitch := -m[5]
	if math.Abs(sinPitch) > 1-1e-10 {
		pitch = math.Copysign(math.Pi/2, sinPitch)
		yaw = math.Atan2(-m[6], m[0])
		roll = 0
		return yaw, pitch, roll
	}
	pitch = math.Asin(sinPitch)
	yaw = math.Atan2(m[2], m[8])
	roll = math.Atan2(m[3], m[4])
	return yaw, pitch, roll
}

// yawPitchRollToQuat rebuilds the quaternion for the same yaw → pitch → roll
// composition quatToYawPitchRoll decomposes.
func yawPitchRollToQuat(yaw, pitch, roll float64) quat.Number {
	qy := axisAngleToQuat(r3.Vector{Y: 1}, yaw)
	qx := axisAngleToQuat(r3.Vector{X: 1}, pitch)
	qz := axisAngleToQuat(r3.Vector{Z: 1}, roll)
	return quat.Mul(quat.Mul(qy, qx), qz)
}
