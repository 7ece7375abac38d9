// Package control provides the spring laws that drive bodies toward targets.
//
//   - [Spring]: a stateless implicit spring/damper parameterized by strength
//     (natural angular frequency) and damping ratio
//   - [Muscle]: a per-body component applying an angular spring toward a
//     target anchor while tense
//
// # Usage
//
//	s := control.Spring{Strength: 12, DampRatio: 1}
//	res := s.Linear(item, slot, dt)
//	eng.ApplyImpulse(itemEntity, res.Impulse, mgl64.Vec3{})
//
// Springs support live tuning through GetParams and SetParam.
package control
